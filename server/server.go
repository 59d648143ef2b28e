package server

import (
	"fmt"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/forge/eval"
)

// Handles clients stop re-invoking are swept after a while so the
// handle table stays bounded on long-lived servers.
const (
	handleSweepInterval = time.Minute
	handleMaxIdle       = 30 * time.Minute
)

// Server exposes one execution context over the Connect protocol with
// JSON bodies. All procedures share a single worker goroutine.
type Server struct {
	worker   *EvalWorker
	programs *ProgramStore
	mux      *http.ServeMux
	log      commonlog.Logger
	quit     chan struct{}
}

// New creates a Server wrapping the given execution context.
func New(c *eval.Context) *Server {
	worker := NewEvalWorker(c)
	programs := NewProgramStore()

	s := &Server{
		worker:   worker,
		programs: programs,
		mux:      http.NewServeMux(),
		log:      commonlog.GetLogger("forge.server"),
		quit:     make(chan struct{}),
	}
	go s.sweepLoop()

	svc := NewEvalService(worker, programs)
	codec := connect.WithCodec(jsonCodec{})

	s.mux.Handle(ProcedureEvaluate,
		connect.NewUnaryHandler(ProcedureEvaluate, svc.Evaluate, codec))
	s.mux.Handle(ProcedureRunSnippet,
		connect.NewUnaryHandler(ProcedureRunSnippet, svc.RunSnippet, codec))
	s.mux.Handle(ProcedureRunMethod,
		connect.NewUnaryHandler(ProcedureRunMethod, svc.RunMethod, codec))
	s.mux.Handle(ProcedureCheckSyntax,
		connect.NewUnaryHandler(ProcedureCheckSyntax, svc.CheckSyntax, codec))
	s.mux.Handle(ProcedureInvoke,
		connect.NewUnaryHandler(ProcedureInvoke, svc.Invoke, codec))
	s.mux.Handle(ProcedureRelease,
		connect.NewUnaryHandler(ProcedureRelease, svc.Release, codec))

	return s
}

// Handler returns the HTTP handler for all registered procedures.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe blocks serving the evaluation service on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Noticef("evaluation service listening on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("serving on %s: %w", addr, err)
	}
	return nil
}

// sweepLoop periodically drops idle program handles.
func (s *Server) sweepLoop() {
	ticker := time.NewTicker(handleSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.programs.Sweep(handleMaxIdle); n > 0 {
				s.log.Infof("dropped %d idle program handles", n)
			}
		case <-s.quit:
			return
		}
	}
}

// Close stops the worker and sweeper goroutines.
func (s *Server) Close() {
	close(s.quit)
	s.worker.Close()
}
