package harness

import "fmt"

// evaluate checks every assertion against the bus and the trace and
// returns a message per failure.
func (h *Harness) evaluate(assertions []Assertion, result *Result) []string {
	var errs []string
	for i, a := range assertions {
		switch a.Type {
		case AssertCommitted:
			got, err := h.bus.Committed(a.Group, a.Topic, a.Partition)
			if err != nil {
				errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
				continue
			}
			if got != a.Offset {
				errs = append(errs, fmt.Sprintf("assertions[%d]: %s committed %s/%d = %d, want %d",
					i, a.Group, a.Topic, a.Partition, got, a.Offset))
			}
		case AssertTraceCount:
			if got := result.Count(a.Op); got != a.Count {
				errs = append(errs, fmt.Sprintf("assertions[%d]: %d %s event(s), want %d", i, got, a.Op, a.Count))
			}
		}
	}
	return errs
}
