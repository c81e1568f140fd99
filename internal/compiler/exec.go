package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/exhibit/internal/errors"
)

// allowedCommands lists the compilers ExecService may run.
var allowedCommands = map[string]bool{
	"esbuild": true,
	"tsc":     true,
	"swc":     true,
	"bun":     true,
	"deno":    true,
}

// ExecService is a Service backed by an external compiler that reads the
// source on stdin and writes JavaScript to stdout. Models become known to the
// service when a worker is requested for them.
type ExecService struct {
	command string
	args    []string
	timeout time.Duration
	started atomic.Bool

	models      map[string]Model
	modelsMutex sync.RWMutex
}

// NewExecService creates a service running command with args. The service
// reports ErrNotRegistered until Start succeeds.
func NewExecService(command string, args ...string) *ExecService {
	return &ExecService{
		command: command,
		args:    args,
		timeout: 30 * time.Second,
		models:  make(map[string]Model),
	}
}

// Start validates the command and makes the service available.
func (s *ExecService) Start(ctx context.Context) error {
	if err := s.validateCommand(); err != nil {
		return fmt.Errorf("command validation failed: %w", err)
	}
	if _, err := exec.LookPath(s.command); err != nil {
		return fmt.Errorf("compiler %q not found: %w", s.command, err)
	}
	s.started.Store(true)
	return nil
}

// Stop makes the service unavailable and forgets every attached model.
func (s *ExecService) Stop() {
	s.started.Store(false)
	s.modelsMutex.Lock()
	s.models = make(map[string]Model)
	s.modelsMutex.Unlock()
}

// Worker implements Service.
func (s *ExecService) Worker(ctx context.Context) (WorkerGetter, error) {
	if !s.started.Load() {
		return nil, ErrNotRegistered
	}
	return func(ctx context.Context, models ...Model) (Worker, error) {
		s.modelsMutex.Lock()
		for _, m := range models {
			s.models[m.URI().String()] = m
		}
		s.modelsMutex.Unlock()
		return &execWorker{service: s}, nil
	}, nil
}

// Detach forgets the model attached under uri. Workers obtained earlier no
// longer find it.
func (s *ExecService) Detach(uri string) {
	s.modelsMutex.Lock()
	delete(s.models, uri)
	s.modelsMutex.Unlock()
}

// Len returns the number of attached models.
func (s *ExecService) Len() int {
	s.modelsMutex.RLock()
	defer s.modelsMutex.RUnlock()
	return len(s.models)
}

func (s *ExecService) model(uri string) (Model, bool) {
	s.modelsMutex.RLock()
	defer s.modelsMutex.RUnlock()
	m, ok := s.models[uri]
	return m, ok
}

func (s *ExecService) validateCommand() error {
	base := filepath.Base(s.command)
	if !allowedCommands[base] {
		return fmt.Errorf("command %q is not allowed", s.command)
	}
	for _, arg := range s.args {
		if strings.ContainsAny(arg, ";&|$`<>\\\n") {
			return fmt.Errorf("invalid argument '%s'", arg)
		}
	}
	return nil
}

type execWorker struct {
	service *ExecService
}

// SemanticDiagnostics only checks that the model is attached; the external
// compiler reports real problems when emitting.
func (w *execWorker) SemanticDiagnostics(ctx context.Context, uri string) ([]Diagnostic, error) {
	if _, ok := w.service.model(uri); !ok {
		return nil, fmt.Errorf("Could not find source file: '%s'", uri)
	}
	return nil, nil
}

// EmitOutput runs the compiler on the model's current value.
func (w *execWorker) EmitOutput(ctx context.Context, uri string) (EmitOutput, error) {
	m, ok := w.service.model(uri)
	if !ok {
		return EmitOutput{}, fmt.Errorf("Could not find source file: '%s'", uri)
	}
	source, err := m.Value()
	if err != nil {
		return EmitOutput{}, fmt.Errorf("reading model: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.service.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, w.service.command, w.service.args...)
	cmd.Stdin = strings.NewReader(source)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return EmitOutput{}, fmt.Errorf("%s timed out: %w", w.service.command, ctx.Err())
		}
		return EmitOutput{}, errors.CompileError(w.service.command, stderr.String(), err)
	}

	if stdout.Len() == 0 {
		return EmitOutput{}, nil
	}

	base := path.Base(m.URI().Path)
	name := strings.TrimSuffix(base, path.Ext(base)) + ".js"
	return EmitOutput{OutputFiles: []OutputFile{{Name: name, Text: stdout.String()}}}, nil
}
