package compiler

import (
	"context"
	stderrors "errors"
	"net/url"
	"testing"
	"time"

	"github.com/conneroisu/exhibit/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorker struct {
	probeErrs []error
	probes    int
	output    EmitOutput
	emitErr   error
}

func (w *fakeWorker) SemanticDiagnostics(context.Context, string) ([]Diagnostic, error) {
	w.probes++
	if len(w.probeErrs) == 0 {
		return nil, nil
	}
	err := w.probeErrs[0]
	w.probeErrs = w.probeErrs[1:]
	return nil, err
}

func (w *fakeWorker) EmitOutput(context.Context, string) (EmitOutput, error) {
	return w.output, w.emitErr
}

type fakeService struct {
	notReadyFor int
	calls       int
	err         error
	worker      *fakeWorker
}

func (s *fakeService) Worker(context.Context) (WorkerGetter, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.calls <= s.notReadyFor {
		return nil, ErrNotRegistered
	}
	return func(context.Context, ...Model) (Worker, error) {
		return s.worker, nil
	}, nil
}

// recordingPolicy never sleeps but remembers the requested delays.
func recordingPolicy(delays *[]time.Duration) Policy {
	p := DefaultPolicy()
	p.Sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return p
}

type uriModel struct{ uri *url.URL }

func (m uriModel) URI() *url.URL          { return m.uri }
func (m uriModel) Value() (string, error) { return "", nil }

func fileURI(t *testing.T) Model {
	t.Helper()
	u, err := url.Parse("file:///typescript-abc.ts")
	require.NoError(t, err)
	return uriModel{uri: u}
}

func TestRetrieveOutputSuccess(t *testing.T) {
	var delays []time.Duration
	svc := &fakeService{
		notReadyFor: 2,
		worker: &fakeWorker{
			probeErrs: []error{stderrors.New("Could not find source file: 'file:///typescript-abc.ts'")},
			output:    EmitOutput{OutputFiles: []OutputFile{{Name: "a.js", Text: "let a = 1;"}, {Name: "b.js", Text: "ignored"}}},
		},
	}

	out, err := RetrieveOutput(context.Background(), svc, fileURI(t), recordingPolicy(&delays))
	require.NoError(t, err)
	assert.Equal(t, "let a = 1;", out)
	assert.Equal(t, 3, svc.calls)
	assert.Equal(t, 2, svc.worker.probes)
	assert.Equal(t, []time.Duration{
		200 * time.Millisecond,
		200 * time.Millisecond,
		250 * time.Millisecond,
	}, delays)
}

func TestRetrieveOutputWorkerBudget(t *testing.T) {
	var delays []time.Duration
	svc := &fakeService{notReadyFor: 11, worker: &fakeWorker{}}

	_, err := RetrieveOutput(context.Background(), svc, fileURI(t), recordingPolicy(&delays))
	require.Error(t, err)

	assert.ErrorIs(t, err, errors.ErrWorkerUnavailable)
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.Contains(t, err.Error(), "could not obtain worker")
	assert.Equal(t, 10, svc.calls, "exactly ten attempts")
	assert.Len(t, delays, 9)
	assert.False(t, errors.IsRetryable(err))
}

func TestRetrieveOutputWorkerReadyOnLastAttempt(t *testing.T) {
	var delays []time.Duration
	svc := &fakeService{
		notReadyFor: 9,
		worker:      &fakeWorker{output: EmitOutput{OutputFiles: []OutputFile{{Text: "ok"}}}},
	}

	out, err := RetrieveOutput(context.Background(), svc, fileURI(t), recordingPolicy(&delays))
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 10, svc.calls)
}

func TestRetrieveOutputUnexpectedServiceError(t *testing.T) {
	var delays []time.Duration
	boom := stderrors.New("worker crashed")
	svc := &fakeService{err: boom}

	_, err := RetrieveOutput(context.Background(), svc, fileURI(t), recordingPolicy(&delays))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, svc.calls)
	assert.Empty(t, delays)
}

func TestRetrieveOutputProbeErrorPropagates(t *testing.T) {
	var delays []time.Duration
	boom := stderrors.New("syntax tree exploded")
	svc := &fakeService{worker: &fakeWorker{
		probeErrs: []error{boom},
		output:    EmitOutput{OutputFiles: []OutputFile{{Text: "never"}}},
	}}

	_, err := RetrieveOutput(context.Background(), svc, fileURI(t), recordingPolicy(&delays))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, svc.worker.probes)
	assert.Empty(t, delays)
}

func TestRetrieveOutputProbeBudget(t *testing.T) {
	var delays []time.Duration
	errs := make([]error, 30)
	for i := range errs {
		errs[i] = stderrors.New("could not find source file")
	}
	svc := &fakeService{worker: &fakeWorker{
		probeErrs: errs,
		output:    EmitOutput{OutputFiles: []OutputFile{{Text: "late"}}},
	}}

	out, err := RetrieveOutput(context.Background(), svc, fileURI(t), recordingPolicy(&delays))
	require.NoError(t, err)
	assert.Equal(t, "late", out)
	assert.Equal(t, 20, svc.worker.probes)
	assert.Len(t, delays, 20)
}

func TestRetrieveOutputNoFiles(t *testing.T) {
	var delays []time.Duration
	svc := &fakeService{worker: &fakeWorker{}}

	_, err := RetrieveOutput(context.Background(), svc, fileURI(t), recordingPolicy(&delays))
	assert.ErrorIs(t, err, errors.ErrNoOutput)
	assert.Contains(t, err.Error(), "no output produced")
}

func TestRetrieveOutputRequiresFileScheme(t *testing.T) {
	svc := &fakeService{worker: &fakeWorker{}}
	u, err := url.Parse("inmemory://model/1")
	require.NoError(t, err)

	_, err = RetrieveOutput(context.Background(), svc, uriModel{uri: u}, DefaultPolicy())
	assert.ErrorIs(t, err, errors.ErrInvalidURIScheme)
	assert.True(t, errors.IsConfigError(err))
	assert.Equal(t, 0, svc.calls)

	_, err = RetrieveOutput(context.Background(), svc, uriModel{}, DefaultPolicy())
	assert.ErrorIs(t, err, errors.ErrModelUnavailable)
}

func TestRetrieveOutputCancelledWhileWaiting(t *testing.T) {
	svc := &fakeService{notReadyFor: 100}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetrieveOutput(ctx, svc, fileURI(t), DefaultPolicy())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, svc.calls)
}
