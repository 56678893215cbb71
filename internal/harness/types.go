package harness

// TraceStep is one interpreted state. Seq matches the commit seq for the
// in-order interpretation the harness uses: 0 is the seed.
type TraceStep struct {
	Seq   int64    `json:"seq"`
	State Counters `json:"state"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Trace holds every interpreted state in order, the seed first.
	Trace []TraceStep `json:"trace"`

	// Errors lists the failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// ErrorKind classifies how the loop terminated, see ClassifyError.
	ErrorKind string `json:"error_kind"`

	// Err is the loop's termination error, nil on completion.
	Err error `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceStep{},
		Errors:    []string{},
		ErrorKind: ErrorNone,
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// States returns the traced states without their seqs.
func (r *Result) States() []Counters {
	out := make([]Counters, len(r.Trace))
	for i, step := range r.Trace {
		out[i] = step.State
	}
	return out
}

// Final returns the last traced state, nil for an empty trace.
func (r *Result) Final() Counters {
	if len(r.Trace) == 0 {
		return nil
	}
	return r.Trace[len(r.Trace)-1].State
}

// Commits counts derived commits, the seed excluded.
func (r *Result) Commits() int {
	if len(r.Trace) == 0 {
		return 0
	}
	return len(r.Trace) - 1
}
