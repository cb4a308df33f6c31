package harness

import (
	"fmt"
	"strings"
)

// Trace operations.
const (
	OpPublish   = "publish"
	OpSubscribe = "subscribe"
	OpDeliver   = "deliver"
	OpCommit    = "commit"
	OpReset     = "reset"
)

// TraceEvent is one line of a scenario trace.
type TraceEvent struct {
	Op         string
	Group      string
	Topic      string
	Key        string
	Partitions []int // requested partitions; nil means all
	Partition  int
	Offset     int64 // assigned or delivered offset; next offset for commits
	Count      int   // records delivered by a subscribe
	Payload    string
}

func (e TraceEvent) String() string {
	switch e.Op {
	case OpPublish:
		return fmt.Sprintf("publish topic=%s key=%q -> %s/%d@%d", e.Topic, e.Key, e.Topic, e.Partition, e.Offset)
	case OpSubscribe:
		return fmt.Sprintf("subscribe group=%s topic=%s partitions=%s -> %d record(s)", e.Group, e.Topic, partitionList(e.Partitions), e.Count)
	case OpDeliver:
		return fmt.Sprintf("  deliver %s/%d@%d %s", e.Topic, e.Partition, e.Offset, e.Payload)
	case OpCommit:
		if e.Topic == "" {
			return fmt.Sprintf("commit group=%s -> nothing delivered", e.Group)
		}
		return fmt.Sprintf("commit group=%s -> %s/%d next=%d", e.Group, e.Topic, e.Partition, e.Offset)
	case OpReset:
		return fmt.Sprintf("reset group=%s topic=%s partitions=%s", e.Group, e.Topic, partitionList(e.Partitions))
	}
	return e.Op
}

func partitionList(ps []int) string {
	if len(ps) == 0 {
		return "all"
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprint(p)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool

	// Trace lists every operation and delivery in execution order.
	Trace []TraceEvent

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}

// Count returns how many trace events have the given op.
func (r *Result) Count(op string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Op == op {
			n++
		}
	}
	return n
}

// Render is the text form of the trace used for golden files.
func (r *Result) Render(s *Scenario) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", s.Name)
	fmt.Fprintf(&b, "partitions: %d\n", s.Partitions)
	for _, e := range r.Trace {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
