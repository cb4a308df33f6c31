package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: mismatch
description: wrong expectations are reported, not returned
partitions: 2
steps:
  - publish: {topic: t, key: AAPL, payload: {x: 1}}
    expect: {partition: 1, offset: 3}
  - subscribe: {group: g, topic: t}
    expect: {count: 2, offsets: [5]}
assertions:
  - {type: committed, group: g, topic: t, partition: 0, offset: 1}
  - {type: trace_count, op: deliver, count: 0}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "partition 0, want 1")
	assert.Contains(t, result.Errors[1], "offset 0, want 3")
	assert.Contains(t, result.Errors[2], "delivered 1 record(s), want 2")
	assert.Contains(t, result.Errors[3], "offsets [0], want [5]")
	assert.Contains(t, result.Errors[4], "= 0, want 1")
	assert.Contains(t, result.Errors[5], "1 deliver event(s), want 0")
}

func TestRun_BusErrorAborts(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_group
description: an invalid group name stops execution
partitions: 2
steps:
  - subscribe: {group: "a/b", topic: t}
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0 (subscribe)")
}

func TestRun_OutOfRangePartitionIsEmpty(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: out_of_range
description: partitions past the bus are empty, and resettable
partitions: 2
steps:
  - subscribe: {group: g, topic: t, partitions: [7]}
    expect: {count: 0}
  - reset: {group: g, topic: t, partitions: [7]}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_BackendsAgree(t *testing.T) {
	base := `
name: same
description: both journals produce the same trace
partitions: 4
steps:
  - publish: {topic: t, key: a, payload: {v: [1, 2]}}
  - publish: {topic: t, key: c, payload: {v: {nested: true}}}
  - subscribe: {group: g, topic: t}
  - commit: {group: g}
`
	local, err := ParseScenario([]byte(base))
	require.NoError(t, err)
	sqlite, err := ParseScenario([]byte(base + "backend: sqlite\n"))
	require.NoError(t, err)

	want, err := Run(local)
	require.NoError(t, err)
	got, err := Run(sqlite)
	require.NoError(t, err)

	assert.True(t, want.Pass)
	assert.Equal(t, string(want.Render(local)), string(got.Render(sqlite)))
	assert.Equal(t, `  deliver t/1@0 {"v":{"nested":true}}`, want.Trace[3].String())
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "description: d\npartitions: 1\nsteps: [{commit: {group: g}}]", "name is required"},
		{"no partitions", "name: n\ndescription: d\nsteps: [{commit: {group: g}}]", "partitions must be > 0"},
		{"unknown backend", "name: n\ndescription: d\npartitions: 1\nbackend: kafka\nsteps: [{commit: {group: g}}]", "unknown backend"},
		{"no steps", "name: n\ndescription: d\npartitions: 1", "steps list is required"},
		{"two ops", "name: n\ndescription: d\npartitions: 1\nsteps: [{commit: {group: g}, reset: {group: g, topic: t}}]", "exactly one of"},
		{"publish without payload", "name: n\ndescription: d\npartitions: 1\nsteps: [{publish: {topic: t, key: k}}]", "publish.payload is required"},
		{"unknown field", "name: n\ndescription: d\npartitions: 1\nstepz: []", "failed to parse YAML"},
		{"unknown assertion", "name: n\ndescription: d\npartitions: 1\nsteps: [{commit: {group: g}}]\nassertions: [{type: lag}]", "unknown assertion type"},
		{"trace_count without op", "name: n\ndescription: d\npartitions: 1\nsteps: [{commit: {group: g}}]\nassertions: [{type: trace_count, count: 1}]", "op is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestTraceEvent_String(t *testing.T) {
	tests := []struct {
		event TraceEvent
		want  string
	}{
		{TraceEvent{Op: OpPublish, Topic: "t", Key: "", Partition: 1, Offset: 4}, `publish topic=t key="" -> t/1@4`},
		{TraceEvent{Op: OpSubscribe, Group: "g", Topic: "t", Partitions: []int{0, 3}, Count: 2}, "subscribe group=g topic=t partitions=[0,3] -> 2 record(s)"},
		{TraceEvent{Op: OpCommit, Group: "g"}, "commit group=g -> nothing delivered"},
		{TraceEvent{Op: OpReset, Group: "g", Topic: "t"}, "reset group=g topic=t partitions=all"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.event.String())
	}
}
