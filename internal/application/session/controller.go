package session

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/bioscan/internal/application"
	appexams "github.com/bryanwahyu/bioscan/internal/application/exams"
	"github.com/bryanwahyu/bioscan/internal/domain/credentials"
	"github.com/bryanwahyu/bioscan/internal/domain/exams"
	domain "github.com/bryanwahyu/bioscan/internal/domain/session"
)

const DefaultAnalysisTimeout = 3 * time.Minute

// Snapshot read-only copy of a session, safe to render or encode.
type Snapshot struct {
	ID      string                  `json:"id"`
	State   domain.State            `json:"state"`
	Result  *exams.AnalysisResponse `json:"result,omitempty"`
	Failure *domain.Failure         `json:"failure,omitempty"`
}

// Controller owns one UI session: its state, its credential slot and at
// most one outstanding analysis.
type Controller struct {
	ID string

	mu      sync.Mutex
	state   domain.Session
	store   credentials.Store
	svc     *appexams.Service
	timeout time.Duration
	clock   application.Clock
	log     *zap.Logger
	active  time.Time
	done    chan struct{}
}

type Options struct {
	Timeout time.Duration
	Clock   application.Clock
	Log     *zap.Logger
}

// NewController starts in Idle when store already holds a credential.
func NewController(ctx context.Context, id string, store credentials.Store, svc *appexams.Service, opts Options) (*Controller, error) {
	cred, err := store.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: credential store: %v", exams.ErrUnexpected, err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultAnalysisTimeout
	}
	if opts.Clock == nil {
		opts.Clock = application.SystemClock{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Controller{
		ID:      id,
		state:   domain.New(cred != ""),
		store:   store,
		svc:     svc,
		timeout: opts.Timeout,
		clock:   opts.Clock,
		log:     opts.Log.With(zap.String("session", id)),
		active:  opts.Clock.Now(),
	}, nil
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		ID:      c.ID,
		State:   c.state.State(),
		Result:  c.state.Result,
		Failure: c.state.Failure,
	}
}

// SubmitCredential stores key and moves to Idle.
func (c *Controller) SubmitCredential(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	next, err := domain.Apply(c.state, domain.CredentialSubmitted{Key: key})
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, strings.TrimSpace(key)); err != nil {
		return fmt.Errorf("%w: credential store: %v", exams.ErrUnexpected, err)
	}
	c.state = next
	c.log.Info("credential stored")
	return nil
}

// SelectFile encodes the document and starts the analysis in the
// background. Encoding and analysis failures end up in the session, not in
// the returned error; that is only for rejected transitions.
func (c *Controller) SelectFile(ctx context.Context, name string, r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	next, err := domain.Apply(c.state, domain.FileSelected{})
	if err != nil {
		return err
	}
	c.state = next

	credential, err := c.store.Get(ctx)
	if err != nil {
		c.fail(fmt.Errorf("%w: credential store: %v", exams.ErrUnexpected, err))
		return nil
	}
	if credential == "" {
		c.fail(exams.ErrMissingCredential)
		return nil
	}
	p, err := c.svc.Encode(name, r)
	if err != nil {
		c.fail(err)
		return nil
	}

	done := make(chan struct{})
	c.done = done
	c.log.Info("analysis started", zap.String("document", name))
	// context.Background(): the request that uploaded the file is gone long
	// before the model answers.
	go c.run(p, credential, done)
	return nil
}

func (c *Controller) run(p exams.Payload, credential string, done chan struct{}) {
	defer close(done)
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	res, err := c.svc.AnalyzePayload(ctx, p, credential)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	if err != nil {
		c.fail(err)
		return
	}
	next, aerr := domain.Apply(c.state, domain.AnalysisSucceeded{Result: res})
	if aerr != nil {
		c.log.Error("dropping analysis result", zap.Error(aerr))
		return
	}
	c.state = next
	c.log.Info("analysis finished", zap.Int("exams", len(res.Exams)))
}

// fail applies AnalysisFailed; caller holds mu. A rejected credential is
// removed from the store so the next prompt starts clean.
func (c *Controller) fail(err error) {
	next, aerr := domain.Apply(c.state, domain.AnalysisFailed{Err: err})
	if aerr != nil {
		c.log.Error("dropping analysis failure", zap.Error(aerr))
		return
	}
	c.state = next
	c.log.Warn("analysis failed", zap.String("kind", string(exams.KindOf(err))), zap.Error(err))
	if exams.IsAuthorization(err) {
		if cerr := c.store.Clear(context.Background()); cerr != nil {
			c.log.Error("clear rejected credential", zap.Error(cerr))
		}
	}
}

func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	next, err := domain.Apply(c.state, domain.Reset{})
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Logout forgets the credential, the result and any failure.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
	next, err := domain.Apply(c.state, domain.Logout{})
	if err != nil {
		return err
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("%w: credential store: %v", exams.ErrUnexpected, err)
	}
	c.state = next
	c.log.Info("logged out")
	return nil
}

// Wait blocks until the outstanding analysis, if any, has resolved.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Busy reports whether an analysis is running.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Processing
}

// IdleSince last time the user or a task touched the session.
func (c *Controller) IdleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Controller) touch() { c.active = c.clock.Now() }
