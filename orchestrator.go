package polish

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// Stage names of the endpoint chain.
const (
	stagePrimary   = "attempt-primary"
	stageSecondary = "attempt-secondary"
	stageTertiary  = "attempt-tertiary"
)

// Orchestrator runs a submission through the endpoint chain and drives the UI.
// Attempts run strictly one after another on the caller's goroutine.
type Orchestrator struct {
	client   *Client
	ui       *UIState
	chain    Chain
	messages Messages
	pipeline pipz.Chainable[*Polish]
	inFlight atomic.Bool
}

// New creates an Orchestrator for the service at baseURL rendering into sink.
// sink and trigger may be nil when the caller only needs the returned values.
func New(baseURL string, sink Sink, trigger Trigger, opts ...Option) (*Orchestrator, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	cfg := newConfig(baseURL, opts)
	if err := validateChain(cfg.Chain); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		client:   newClient(cfg),
		ui:       NewUIState(sink, trigger),
		chain:    cfg.Chain,
		messages: cfg.Messages,
	}

	// Each stage returns an error on failure so the fallback moves on.
	var primary pipz.Chainable[*Polish] = pipz.Apply(stagePrimary, o.attempt(0))
	var secondary pipz.Chainable[*Polish] = pipz.Apply(stageSecondary, o.attempt(1))
	var tertiary pipz.Chainable[*Polish] = pipz.Apply(stageTertiary, o.attempt(2))

	var fallbacks pipz.Chainable[*Polish] = pipz.NewFallback("oneshot-fallback", secondary, tertiary)
	o.pipeline = pipz.NewFallback("endpoint-chain", primary, fallbacks)
	return o, nil
}

func validateChain(chain Chain) error {
	if chain[0].Mode != Streaming {
		return errors.Errorf("first endpoint %q must be streaming", chain[0].Path)
	}
	for _, ep := range chain[1:] {
		if ep.Mode != OneShot {
			return errors.Errorf("fallback endpoint %q must be one-shot", ep.Path)
		}
	}
	for _, ep := range chain {
		if ep.Path == "" {
			return errors.New("endpoint path is required")
		}
	}
	return nil
}

// GetPipeline returns the underlying pipeline for composition.
func (o *Orchestrator) GetPipeline() pipz.Chainable[*Polish] {
	return o.pipeline
}

// UI returns the state the orchestrator renders into.
func (o *Orchestrator) UI() *UIState {
	return o.ui
}

// Client returns the client used for endpoint attempts.
func (o *Orchestrator) Client() *Client {
	return o.client
}

// Submit polishes text. The trigger is disabled for the duration of the call and
// re-enabled on every exit path.
//
// Blank text fails with ErrEmptyInput before any request is made. When every
// endpoint fails, the returned error is an *ExhaustedError carrying all attempts
// and the sink shows the last failure's detail.
func (o *Orchestrator) Submit(ctx context.Context, text string) (string, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return "", ErrInFlight
	}
	defer o.inFlight.Store(false)

	o.ui.disable()
	defer o.ui.enable()

	req, err := NewRequest(text)
	if err != nil {
		o.ui.showError(o.messages.EmptyInput)
		capitan.Error(ctx, SubmitRejected,
			ErrorKey.Field(err.Error()),
		)
		return "", err
	}

	p := &Polish{
		Request:   req,
		RequestID: uuid.New().String(),
	}

	capitan.Info(ctx, SubmitStarted,
		RequestIDKey.Field(p.RequestID),
		InputKey.Field(req.Text()),
	)

	o.ui.showLoading(o.messages.Loading)
	start := time.Now()

	if _, err := o.pipeline.Process(ctx, p); err != nil {
		final := o.failure(ctx, p)
		o.ui.showError(o.messages.Failed + "\n" + failureDetail(final))
		capitan.Error(ctx, SubmitFailed,
			RequestIDKey.Field(p.RequestID),
			AttemptKey.Field(len(p.Attempts)),
			ErrorKey.Field(final.Error()),
			DurationMsKey.Field(int(time.Since(start).Milliseconds())),
		)
		return "", final
	}

	o.ui.showResult(p.Result)
	capitan.Info(ctx, SubmitCompleted,
		RequestIDKey.Field(p.RequestID),
		AttemptKey.Field(len(p.Attempts)),
		OutputKey.Field(p.Result),
		DurationMsKey.Field(int(time.Since(start).Milliseconds())),
	)
	return p.Result, nil
}

// attempt builds the stage that calls the idx-th endpoint of the chain.
func (o *Orchestrator) attempt(idx int) func(context.Context, *Polish) (*Polish, error) {
	return func(ctx context.Context, p *Polish) (*Polish, error) {
		if err := ctx.Err(); err != nil {
			return p, err
		}
		ep := o.chain[idx]

		capitan.Info(ctx, AttemptStarted,
			RequestIDKey.Field(p.RequestID),
			EndpointKey.Field(ep.Path),
			ModeKey.Field(ep.Mode.String()),
			AttemptKey.Field(idx+1),
		)

		start := time.Now()
		text, err := o.call(ctx, idx, p.Request)
		a := Attempt{Index: idx, Endpoint: ep, Duration: time.Since(start)}

		if err != nil {
			var ae *AttemptError
			if !errors.As(err, &ae) {
				ae = attemptErr(KindNetwork, ep, "", err)
			}
			a.Err = ae
			p.Attempts = append(p.Attempts, a)

			capitan.Error(ctx, AttemptFailed,
				RequestIDKey.Field(p.RequestID),
				EndpointKey.Field(ep.Path),
				ModeKey.Field(ep.Mode.String()),
				AttemptKey.Field(idx+1),
				ErrorKey.Field(ae.Error()),
				ErrorKindKey.Field(ae.Kind.String()),
				HTTPStatusCodeKey.Field(ae.Status),
				MarkerKey.Field(ae.Marker),
				DurationMsKey.Field(int(a.Duration.Milliseconds())),
			)
			return p, ae
		}

		a.Text = text
		p.Attempts = append(p.Attempts, a)
		p.Result = text

		capitan.Info(ctx, AttemptCompleted,
			RequestIDKey.Field(p.RequestID),
			EndpointKey.Field(ep.Path),
			ModeKey.Field(ep.Mode.String()),
			AttemptKey.Field(idx+1),
			OutputKey.Field(text),
			DurationMsKey.Field(int(a.Duration.Milliseconds())),
		)
		return p, nil
	}
}

// call runs one endpoint. A panic raised while rendering or reading becomes a
// KindPanic failure of this attempt.
func (o *Orchestrator) call(ctx context.Context, idx int, req Request) (text string, err error) {
	ep := o.chain[idx]
	defer func() {
		if r := recover(); r != nil {
			text, err = "", attemptErr(KindPanic, ep, fmt.Sprint(r), nil)
		}
	}()

	if idx > 0 {
		o.ui.showLoading(o.messages.Retrying)
	}
	if ep.Mode == Streaming {
		return o.client.ConsumeStream(ctx, ep, req, o.ui.showResult)
	}
	return o.client.RequestOnce(ctx, ep, req)
}

// failure builds the error returned when the chain did not produce a result.
func (o *Orchestrator) failure(ctx context.Context, p *Polish) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "submission canceled")
	}
	return &ExhaustedError{Attempts: p.Attempts}
}

func failureDetail(err error) string {
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		if last := exhausted.Last(); last != nil {
			return last.Message()
		}
	}
	return err.Error()
}
