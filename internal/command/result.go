// Package command executes typed Hub commands against the catalog store.
package command

// Disposition classifies the outcome of one command dispatch.
type Disposition int

const (
	// Handled means the command was recognized and applied.
	Handled Disposition = iota
	// Failed means the command was recognized but rejected; the failure is
	// carried in the result so a batch of commands can keep going.
	Failed
	// PassThrough means the kind is not one of ours. It is distinct from
	// both success and failure so a dispatch chain composed with handlers
	// for unrelated command kinds can continue unaffected.
	PassThrough
)

// Error codes carried by failed results.
const (
	CodeValidation = "validation_error"
	CodeNotFound   = "not_found"
)

// Result is the structured outcome of one command. Failures are values,
// never Go errors: no command outcome aborts the caller's batch.
type Result struct {
	Disposition Disposition
	Fields      map[string]any
	Code        string
	Err         string
}

func ok(fields map[string]any) Result {
	return Result{Disposition: Handled, Fields: fields}
}

func fail(code, msg string) Result {
	return Result{Disposition: Failed, Code: code, Err: msg}
}

func passThrough() Result {
	return Result{Disposition: PassThrough}
}
