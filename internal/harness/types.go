package harness

// Trace event types.
const (
	EventReconcile = "reconcile"
	EventOperation = "operation"
	EventBroadcast = "broadcast"
)

// TraceEvent records one step of a scenario run.
type TraceEvent struct {
	Type string `json:"type"`
	Pass int    `json:"pass"`

	// Reconcile events.
	Identifier string `json:"identifier,omitempty"`
	State      string `json:"state,omitempty"`
	ID         string `json:"id,omitempty"`
	Error      string `json:"error,omitempty"`

	// Operation and broadcast events. Buffer is "proposal" or "direct".
	Buffer string `json:"buffer,omitempty"`
	Op     string `json:"op,omitempty"`
	Fields any    `json:"fields,omitempty"`

	// Operations is the number of operations broadcast.
	Operations int `json:"operations,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every pass's report entries and buffered operations in
	// order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
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

// AddReconcileTrace records the outcome of one entity.
func (r *Result) AddReconcileTrace(pass int, identifier, state, id, errMsg string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventReconcile,
		Pass:       pass,
		Identifier: identifier,
		State:      state,
		ID:         id,
		Error:      errMsg,
	})
}

// AddOperationTrace records one buffered operation.
func (r *Result) AddOperationTrace(pass int, buffer, op string, fields any) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventOperation,
		Pass:   pass,
		Buffer: buffer,
		Op:     op,
		Fields: fields,
	})
}

// AddBroadcastTrace records a broadcast buffer.
func (r *Result) AddBroadcastTrace(pass int, buffer string, operations int) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventBroadcast,
		Pass:       pass,
		Buffer:     buffer,
		Operations: operations,
	})
}

// Operations returns the operation events of the trace.
func (r *Result) Operations() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == EventOperation {
			out = append(out, e)
		}
	}
	return out
}
