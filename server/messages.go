package server

// Procedure paths for the evaluation service. Clients call these with
// the Connect protocol and JSON bodies.
const (
	ProcedureEvaluate    = "/forge.v1.EvaluationService/Evaluate"
	ProcedureRunSnippet  = "/forge.v1.EvaluationService/RunSnippet"
	ProcedureRunMethod   = "/forge.v1.EvaluationService/RunMethod"
	ProcedureCheckSyntax = "/forge.v1.EvaluationService/CheckSyntax"
	ProcedureInvoke      = "/forge.v1.EvaluationService/Invoke"
	ProcedureRelease     = "/forge.v1.EvaluationService/Release"
)

// EvaluateRequest compiles and evaluates an expression.
type EvaluateRequest struct {
	Source string `json:"source"`
}

// RunSnippetRequest compiles and runs bare statements.
type RunSnippetRequest struct {
	Source string `json:"source"`
}

// RunMethodRequest compiles a function declaration and invokes it.
type RunMethodRequest struct {
	Source string `json:"source"`
	Entry  string `json:"entry"`
	Args   []any  `json:"args,omitempty"`
}

// EvaluateResponse carries the outcome of any compile-and-run call.
// Success and ErrorMessage mirror the facade's status fields: RPC-level
// errors are reserved for malformed requests.
type EvaluateResponse struct {
	Success         bool   `json:"success"`
	ErrorMessage    string `json:"error_message,omitempty"`
	Result          string `json:"result,omitempty"`
	GeneratedSource string `json:"generated_source,omitempty"`
	Handle          string `json:"handle,omitempty"`
	Key             string `json:"key,omitempty"`
}

// CheckSyntaxRequest validates source without executing it.
type CheckSyntaxRequest struct {
	Source string `json:"source"`
	Kind   string `json:"kind,omitempty"` // "snippet", "expression", or "method"
}

// CheckSyntaxResponse lists validation findings; Valid means none.
type CheckSyntaxResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// InvokeRequest re-invokes a previously compiled program by handle.
type InvokeRequest struct {
	Handle string `json:"handle"`
	Entry  string `json:"entry,omitempty"` // defaults to the handle's entry
	Args   []any  `json:"args,omitempty"`
}

// ReleaseRequest drops a program handle.
type ReleaseRequest struct {
	Handle string `json:"handle"`
}

// ReleaseResponse reports whether the handle existed.
type ReleaseResponse struct {
	Released bool `json:"released"`
}
