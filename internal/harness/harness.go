package harness

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/pri-23-03/Gptrader/internal/bus"
	"github.com/pri-23-03/Gptrader/internal/store"
)

// Harness executes one scenario against one bus.
type Harness struct {
	bus    *bus.Bus
	logger *slog.Logger

	// delivered holds each group's envelopes from its latest subscribe step.
	delivered map[string][]bus.Envelope
}

// Run executes a test scenario against a fresh bus and returns the result.
// An error means the scenario could not be executed at all; failed
// expectations are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	b, cleanup, err := openBus(scenario)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	h := &Harness{
		bus:       b,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		delivered: make(map[string][]bus.Envelope),
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op(), err)
		}
	}

	for _, msg := range h.evaluate(scenario.Assertions, result) {
		result.AddError(msg)
	}
	return result, nil
}

// openBus builds an empty bus for the scenario's backend.
func openBus(s *Scenario) (*bus.Bus, func(), error) {
	quiet := bus.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	if s.Backend == BackendSQLite {
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		b, err := bus.New(st, st, s.Partitions, quiet)
		if err != nil {
			st.Close()
			return nil, nil, err
		}
		return b, func() { b.Close() }, nil
	}

	dir, err := os.MkdirTemp("", "gptrader-scenario-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create scenario dir: %w", err)
	}
	b, err := bus.Open(dir, s.Partitions, quiet)
	if err != nil {
		os.RemoveAll(dir)
		return nil, nil, err
	}
	return b, func() { b.Close(); os.RemoveAll(dir) }, nil
}

func (h *Harness) execute(i int, step Step, result *Result) error {
	switch {
	case step.Publish != nil:
		return h.publish(i, step.Publish, step.Expect, result)
	case step.Subscribe != nil:
		return h.subscribe(i, step.Subscribe, step.Expect, result)
	case step.Commit != nil:
		return h.commit(step.Commit, result)
	case step.Reset != nil:
		r := step.Reset
		if err := h.bus.Reset(r.Group, r.Topic, r.Partitions...); err != nil {
			return err
		}
		result.add(TraceEvent{Op: OpReset, Group: r.Group, Topic: r.Topic, Partitions: r.Partitions})
	}
	return nil
}

func (h *Harness) publish(i int, p *PublishStep, expect *Expect, result *Result) error {
	payload, err := json.Marshal(normalize(p.Payload))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	env, err := h.bus.Publish(p.Topic, p.Key, json.RawMessage(payload))
	if err != nil {
		return err
	}
	result.add(TraceEvent{Op: OpPublish, Topic: p.Topic, Key: p.Key, Partition: env.Partition, Offset: env.Offset})

	if expect != nil {
		if expect.Partition != nil && *expect.Partition != env.Partition {
			result.AddError(fmt.Sprintf("step %d: published to partition %d, want %d", i, env.Partition, *expect.Partition))
		}
		if expect.Offset != nil && *expect.Offset != env.Offset {
			result.AddError(fmt.Sprintf("step %d: assigned offset %d, want %d", i, env.Offset, *expect.Offset))
		}
	}
	h.logger.Debug("published", "step", i, "topic", p.Topic, "partition", env.Partition, "offset", env.Offset)
	return nil
}

func (h *Harness) subscribe(i int, s *SubscribeStep, expect *Expect, result *Result) error {
	var envs []bus.Envelope
	for env, err := range h.bus.Subscribe(s.Group, s.Topic, s.Partitions...) {
		if err != nil {
			return err
		}
		envs = append(envs, env)
	}
	h.delivered[s.Group] = envs

	result.add(TraceEvent{Op: OpSubscribe, Group: s.Group, Topic: s.Topic, Partitions: s.Partitions, Count: len(envs)})
	offsets := make([]int64, len(envs))
	for j, env := range envs {
		offsets[j] = env.Offset
		result.add(TraceEvent{Op: OpDeliver, Topic: env.Topic, Partition: env.Partition, Offset: env.Offset, Payload: string(env.Payload)})
	}

	if expect != nil {
		if expect.Count != nil && *expect.Count != len(envs) {
			result.AddError(fmt.Sprintf("step %d: delivered %d record(s), want %d", i, len(envs), *expect.Count))
		}
		if expect.Offsets != nil && !slices.Equal(expect.Offsets, offsets) {
			result.AddError(fmt.Sprintf("step %d: delivered offsets %v, want %v", i, offsets, expect.Offsets))
		}
	}
	return nil
}

// commit commits the group's last delivery and traces the resulting next
// offset once per partition.
func (h *Harness) commit(c *CommitStep, result *Result) error {
	envs := h.delivered[c.Group]
	if len(envs) == 0 {
		result.add(TraceEvent{Op: OpCommit, Group: c.Group})
		return nil
	}

	type ref struct {
		topic     string
		partition int
	}
	last := make(map[ref]int64)
	for _, env := range envs {
		if err := h.bus.Commit(c.Group, env); err != nil {
			return err
		}
		last[ref{env.Topic, env.Partition}] = env.Offset
	}
	delete(h.delivered, c.Group)

	refs := make([]ref, 0, len(last))
	for r := range last {
		refs = append(refs, r)
	}
	slices.SortFunc(refs, func(a, b ref) int {
		return cmp.Or(cmp.Compare(a.topic, b.topic), cmp.Compare(a.partition, b.partition))
	})
	for _, r := range refs {
		result.add(TraceEvent{Op: OpCommit, Group: c.Group, Topic: r.topic, Partition: r.partition, Offset: last[r] + 1})
	}
	return nil
}

// normalize turns YAML-decoded values into types encoding/json accepts.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalize(val)
		}
		return out
	}
	return v
}
