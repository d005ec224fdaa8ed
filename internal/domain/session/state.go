package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bryanwahyu/bioscan/internal/domain/exams"
)

// State screen shown to the user, derived from Session
type State int

const (
	NeedsCredential State = iota
	Idle
	Processing
	ShowingResult
	ShowingError
)

func (s State) String() string {
	switch s {
	case NeedsCredential:
		return "needs_credential"
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case ShowingResult:
		return "showing_result"
	case ShowingError:
		return "showing_error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrBusy              = errors.New("analysis already in progress")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrEmptyCredential   = errors.New("empty credential")
)

// Failure error held by the session for display
type Failure struct {
	Kind    exams.Kind `json:"kind"`
	Message string     `json:"message"`
}

// FailureFrom converts err into the user-facing failure.
func FailureFrom(err error) *Failure {
	return &Failure{Kind: exams.KindOf(err), Message: exams.Message(err)}
}

// Session is the whole UI state. At most one of Result/Failure is set and
// neither is set while Processing.
type Session struct {
	HasCredential bool
	Processing    bool
	Result        *exams.AnalysisResponse
	Failure       *Failure
}

// New initial session: Idle when a credential is already stored.
func New(hasCredential bool) Session {
	return Session{HasCredential: hasCredential}
}

// State derives the current screen. A missing credential wins over
// everything else so an authorization failure re-prompts immediately.
func (s Session) State() State {
	switch {
	case !s.HasCredential:
		return NeedsCredential
	case s.Processing:
		return Processing
	case s.Result != nil:
		return ShowingResult
	case s.Failure != nil:
		return ShowingError
	default:
		return Idle
	}
}

// MarshalText renders the state name in JSON snapshots.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Event input of the transition function
type Event interface{ event() }

type (
	CredentialSubmitted struct{ Key string }
	FileSelected        struct{}
	AnalysisSucceeded   struct{ Result *exams.AnalysisResponse }
	AnalysisFailed      struct{ Err error }
	Reset               struct{}
	Logout              struct{}
)

func (CredentialSubmitted) event() {}
func (FileSelected) event() {}
func (AnalysisSucceeded) event() {}
func (AnalysisFailed) event() {}
func (Reset) event() {}
func (Logout) event() {}

// Apply is the transition function. On error the returned session is the
// input session, unchanged.
func Apply(s Session, ev Event) (Session, error) {
	st := s.State()
	switch e := ev.(type) {
	case CredentialSubmitted:
		if st != NeedsCredential {
			return s, fmt.Errorf("%w: credential submitted in %s", ErrInvalidTransition, st)
		}
		if strings.TrimSpace(e.Key) == "" {
			return s, ErrEmptyCredential
		}
		return Session{HasCredential: true}, nil

	case FileSelected:
		switch st {
		case Idle:
			return Session{HasCredential: true, Processing: true}, nil
		case NeedsCredential:
			return s, exams.ErrMissingCredential
		case Processing:
			return s, ErrBusy
		default:
			return s, fmt.Errorf("%w: file selected in %s", ErrInvalidTransition, st)
		}

	case AnalysisSucceeded:
		if st != Processing {
			return s, fmt.Errorf("%w: analysis result in %s", ErrInvalidTransition, st)
		}
		if e.Result == nil {
			return Apply(s, AnalysisFailed{Err: exams.ErrEmptyResponse})
		}
		return Session{HasCredential: true, Result: e.Result}, nil

	case AnalysisFailed:
		if st != Processing {
			return s, fmt.Errorf("%w: analysis failure in %s", ErrInvalidTransition, st)
		}
		err := e.Err
		if err == nil {
			err = exams.ErrUnexpected
		}
		return Session{
			HasCredential: !dropsCredential(err),
			Failure:       FailureFrom(err),
		}, nil

	case Reset:
		switch st {
		case ShowingResult, ShowingError, Idle:
			return Session{HasCredential: true}, nil
		case Processing:
			return s, ErrBusy
		default:
			return s, fmt.Errorf("%w: reset in %s", ErrInvalidTransition, st)
		}

	case Logout:
		switch st {
		case Processing:
			return s, ErrBusy
		case NeedsCredential:
			return s, nil
		default:
			return Session{}, nil
		}

	default:
		return s, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}
}

// dropsCredential: the stored key is unusable, so the user must enter one.
func dropsCredential(err error) bool {
	return exams.IsAuthorization(err) || errors.Is(err, exams.ErrMissingCredential)
}
