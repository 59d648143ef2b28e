package server

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/forge/codegen"
	"github.com/chazu/forge/eval"
)

// EvalService implements the evaluation RPC handlers.
type EvalService struct {
	worker   *EvalWorker
	programs *ProgramStore
}

// NewEvalService creates an EvalService.
func NewEvalService(worker *EvalWorker, programs *ProgramStore) *EvalService {
	return &EvalService{
		worker:   worker,
		programs: programs,
	}
}

// Evaluate compiles and evaluates an expression.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[EvaluateRequest],
) (*connect.Response[EvaluateResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	result, err := s.worker.Do(func(c *eval.Context) any {
		c.EvalExpression(source)
		return s.response(c, "")
	})
	if err != nil {
		return connect.NewResponse(&EvaluateResponse{
			Success:      false,
			ErrorMessage: err.Error(),
		}), nil
	}
	return connect.NewResponse(result.(*EvaluateResponse)), nil
}

// RunSnippet compiles and runs bare statements.
func (s *EvalService) RunSnippet(
	ctx context.Context,
	req *connect.Request[RunSnippetRequest],
) (*connect.Response[EvaluateResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	result, err := s.worker.Do(func(c *eval.Context) any {
		c.RunSnippet(source)
		return s.response(c, "")
	})
	if err != nil {
		return connect.NewResponse(&EvaluateResponse{
			Success:      false,
			ErrorMessage: err.Error(),
		}), nil
	}
	return connect.NewResponse(result.(*EvaluateResponse)), nil
}

// RunMethod compiles a function declaration and invokes it with the
// given arguments.
func (s *EvalService) RunMethod(
	ctx context.Context,
	req *connect.Request[RunMethodRequest],
) (*connect.Response[EvaluateResponse], error) {
	if req.Msg.Source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	if req.Msg.Entry == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("entry is required"))
	}

	source, entry, args := req.Msg.Source, req.Msg.Entry, req.Msg.Args
	result, err := s.worker.Do(func(c *eval.Context) any {
		c.RunMethod(source, entry, args...)
		return s.response(c, entry)
	})
	if err != nil {
		return connect.NewResponse(&EvaluateResponse{
			Success:      false,
			ErrorMessage: err.Error(),
		}), nil
	}
	return connect.NewResponse(result.(*EvaluateResponse)), nil
}

// CheckSyntax validates source without executing it.
func (s *EvalService) CheckSyntax(
	ctx context.Context,
	req *connect.Request[CheckSyntaxRequest],
) (*connect.Response[CheckSyntaxResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	mode := codegen.ModeSnippet
	switch req.Msg.Kind {
	case "", "snippet":
	case "expression":
		mode = codegen.ModeExpression
	case "method":
		mode = codegen.ModeMethod
	default:
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("unknown kind %q", req.Msg.Kind))
	}

	result, err := s.worker.Do(func(c *eval.Context) any {
		shell := &codegen.Shell{
			PackageName: c.PackageName,
			EntryName:   c.EntryName,
			Imports:     c.Imports,
			Mode:        mode,
		}
		generated, gerr := shell.Generate(source)
		if gerr != nil {
			return &CheckSyntaxResponse{Valid: false, Errors: []string{gerr.Error()}}
		}
		verrs := codegen.NewValidator("forge-unit.go").Validate(generated)
		if len(verrs) == 0 {
			return &CheckSyntaxResponse{Valid: true}
		}
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.String()
		}
		return &CheckSyntaxResponse{Valid: false, Errors: msgs}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(result.(*CheckSyntaxResponse)), nil
}

// Invoke re-invokes a previously compiled program by handle.
func (s *EvalService) Invoke(
	ctx context.Context,
	req *connect.Request[InvokeRequest],
) (*connect.Response[EvaluateResponse], error) {
	if req.Msg.Handle == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("handle is required"))
	}

	prog, entry, ok := s.programs.Lookup(req.Msg.Handle)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound,
			fmt.Errorf("handle %q not found", req.Msg.Handle))
	}
	if req.Msg.Entry != "" {
		entry = req.Msg.Entry
	}

	args := req.Msg.Args
	result, err := s.worker.Do(func(c *eval.Context) any {
		value, ierr := prog.Invoke(entry, args...)
		if ierr != nil {
			return &EvaluateResponse{Success: false, ErrorMessage: ierr.Error()}
		}
		return &EvaluateResponse{
			Success: true,
			Result:  formatResult(value),
			Handle:  req.Msg.Handle,
		}
	})
	if err != nil {
		return connect.NewResponse(&EvaluateResponse{
			Success:      false,
			ErrorMessage: err.Error(),
		}), nil
	}
	return connect.NewResponse(result.(*EvaluateResponse)), nil
}

// Release drops a program handle.
func (s *EvalService) Release(
	ctx context.Context,
	req *connect.Request[ReleaseRequest],
) (*connect.Response[ReleaseResponse], error) {
	if req.Msg.Handle == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("handle is required"))
	}
	return connect.NewResponse(&ReleaseResponse{
		Released: s.programs.Remove(req.Msg.Handle),
	}), nil
}

// response snapshots the context's status fields into a response,
// retaining the compiled program under a fresh handle on success.
// entry overrides the handle's default entry name when non-empty.
func (s *EvalService) response(c *eval.Context, entry string) *EvaluateResponse {
	if c.Failed {
		return &EvaluateResponse{
			Success:         false,
			ErrorMessage:    c.ErrorText,
			GeneratedSource: c.Source,
		}
	}

	resp := &EvaluateResponse{
		Success:         true,
		Result:          formatResult(c.Result),
		GeneratedSource: c.Source,
		Key:             c.Key(),
	}
	if prog := c.Program(); prog != nil {
		if entry == "" {
			entry = c.EntryName
		}
		if entry == "" {
			entry = codegen.DefaultEntryName
		}
		resp.Handle = s.programs.Create(prog, c.Key(), entry)
	}
	return resp
}

// formatResult renders an invocation result for the wire.
func formatResult(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
