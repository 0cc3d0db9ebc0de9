package pgtune

import "fmt"

// InvalidRequestError reports a Request that fails basic range/shape
// validation (RAM, CPU, version, connections, malformed disk spec).
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// InvalidDiskSpecError reports a disk spec whose tag is not on the ladder
// and which carries no explicit IOPS/throughput pair either.
type InvalidDiskSpecError struct {
	Tag string
}

func (e *InvalidDiskSpecError) Error() string {
	return fmt.Sprintf("invalid disk spec: unknown tag %q", e.Tag)
}

// UnknownTunableError reports a correction-pass reference to a key absent
// from the resolved catalog.
type UnknownTunableError struct {
	Key string
}

func (e *UnknownTunableError) Error() string {
	return fmt.Sprintf("unknown tunable: %s", e.Key)
}

// CatalogEvalError reports a tune_op/trigger formula that returned an error
// (or an initial tune_op that panicked). The type of a returned value is not
// checked against the item's unit here; a value that does not fit its unit
// surfaces as a RenderError at render time.
type CatalogEvalError struct {
	Key   string
	Cause error
}

func (e *CatalogEvalError) Error() string {
	return fmt.Sprintf("catalog evaluation failed for %s: %v", e.Key, e.Cause)
}

func (e *CatalogEvalError) Unwrap() error { return e.Cause }

// MemoryBudgetInfeasibleError reports that worst_case_mem could not be
// brought under usable RAM even after the one-time work_mem shrink.
type MemoryBudgetInfeasibleError struct {
	UsableRAMBytes    uint64
	WorstCaseMemBytes uint64
}

func (e *MemoryBudgetInfeasibleError) Error() string {
	return fmt.Sprintf("memory budget infeasible: worst case %d bytes exceeds usable RAM %d bytes",
		e.WorstCaseMemBytes, e.UsableRAMBytes)
}

// CorrectionDidNotConvergeError reports that the correction pass's
// fixed-point loop exhausted its sweep budget with residual changes.
// Residual names the correction phases that still reported a change in the
// last sweep; it does not list the individual tunable keys.
type CorrectionDidNotConvergeError struct {
	Residual []string
}

func (e *CorrectionDidNotConvergeError) Error() string {
	return fmt.Sprintf("correction did not converge, residual phases: %v", e.Residual)
}

// RenderError reports a display-unit mismatch discovered at render time.
type RenderError struct {
	Key   string
	Cause error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render error for %s: %v", e.Key, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }
