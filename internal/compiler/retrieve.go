// Package compiler retrieves compiled output from an asynchronous compiler
// service that only becomes consistent with an editor model after a delay.
//
// RetrieveOutput separates three conditions: the service has not started
// (ErrNotRegistered, retried with coarse backoff), the service has not yet
// seen the model (probe errors matching "could not find source file",
// retried with finer backoff), and everything else (returned immediately).
package compiler

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/conneroisu/exhibit/internal/errors"
)

// ErrNotRegistered is returned by Service.Worker while the service is starting.
var ErrNotRegistered = stderrors.New("compiler service not registered")

var unrecognizedSource = regexp.MustCompile(`(?i)could not find source file`)

// Diagnostic is one compiler message about a source file.
type Diagnostic struct {
	Message string
	Line    int
	Column  int
}

// OutputFile is one emitted file.
type OutputFile struct {
	Name string
	Text string
}

// EmitOutput is the result of compiling one source file.
type EmitOutput struct {
	OutputFiles []OutputFile
}

// Worker compiles source files known to the service.
type Worker interface {
	SemanticDiagnostics(ctx context.Context, uri string) ([]Diagnostic, error)
	EmitOutput(ctx context.Context, uri string) (EmitOutput, error)
}

// Model is an editor model the service can compile.
type Model interface {
	URI() *url.URL
	Value() (string, error)
}

// WorkerGetter returns a worker that has the given models attached.
type WorkerGetter func(ctx context.Context, models ...Model) (Worker, error)

// Service is the compiler backing typescript editors.
type Service interface {
	Worker(ctx context.Context) (WorkerGetter, error)
}

// Detacher is implemented by services that keep attached models until told
// to forget them.
type Detacher interface {
	Detach(uri string)
}

// Policy bounds the retries of RetrieveOutput.
type Policy struct {
	WorkerAttempts int
	WorkerDelay    time.Duration
	ProbeAttempts  int
	ProbeDelay     time.Duration
	// Sleep waits between attempts. Nil selects a context aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns 10 worker attempts 200ms apart and 20 probes 250ms
// apart.
func DefaultPolicy() Policy {
	return Policy{
		WorkerAttempts: 10,
		WorkerDelay:    200 * time.Millisecond,
		ProbeAttempts:  20,
		ProbeDelay:     250 * time.Millisecond,
	}
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetrieveOutput returns the text of the first file the service emits for
// the model.
func RetrieveOutput(ctx context.Context, svc Service, model Model, policy Policy) (string, error) {
	if model == nil || model.URI() == nil {
		return "", errors.ErrModelUnavailable
	}
	uri := model.URI()
	if uri.Scheme != "file" {
		return "", errors.NewConfigError(
			errors.ErrCodeInvalidURIScheme,
			fmt.Sprintf("model must use file:// URI, got: %s", uri),
		)
	}

	getter, err := obtainWorker(ctx, svc, policy)
	if err != nil {
		return "", err
	}

	worker, err := getter(ctx, model)
	if err != nil {
		return "", fmt.Errorf("attaching model to worker: %w", err)
	}

	source := uri.String()
	if err := awaitSource(ctx, worker, source, policy); err != nil {
		return "", err
	}

	out, err := worker.EmitOutput(ctx, source)
	if err != nil {
		return "", fmt.Errorf("emitting output: %w", err)
	}
	if len(out.OutputFiles) == 0 {
		return "", errors.NewInternalError(errors.ErrCodeNoOutput, "no output produced for "+source, nil)
	}
	return out.OutputFiles[0].Text, nil
}

// obtainWorker calls svc.Worker at most policy.WorkerAttempts times.
func obtainWorker(ctx context.Context, svc Service, policy Policy) (WorkerGetter, error) {
	for attempt := 1; attempt <= policy.WorkerAttempts; attempt++ {
		getter, err := svc.Worker(ctx)
		if err == nil {
			return getter, nil
		}
		if !stderrors.Is(err, ErrNotRegistered) {
			return nil, err
		}
		if attempt == policy.WorkerAttempts {
			break
		}
		if err := policy.sleep(ctx, policy.WorkerDelay); err != nil {
			return nil, err
		}
	}

	return nil, &errors.ExhibitError{
		Type:    errors.ErrorTypeTransient,
		Code:    errors.ErrCodeWorkerUnavailable,
		Message: fmt.Sprintf("could not obtain worker after %d attempts", policy.WorkerAttempts),
		Cause:   ErrNotRegistered,
	}
}

// awaitSource probes the worker until it recognises the source. When the
// probe budget runs out the caller proceeds to emit and reports whatever the
// worker says then.
func awaitSource(ctx context.Context, worker Worker, source string, policy Policy) error {
	for attempt := 1; attempt <= policy.ProbeAttempts; attempt++ {
		_, err := worker.SemanticDiagnostics(ctx, source)
		if err == nil {
			return nil
		}
		if !unrecognizedSource.MatchString(err.Error()) {
			return err
		}
		if err := policy.sleep(ctx, policy.ProbeDelay); err != nil {
			return err
		}
	}
	return nil
}
