package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/bioscan/internal/domain/exams"
)

func sampleResult() *exams.AnalysisResponse {
	return &exams.AnalysisResponse{
		Summary: "Paciente saudável",
		Exams: []exams.ExamItem{
			{Name: "Glicose", MeasuredValue: "90", Unit: "mg/dL", Status: exams.StatusNormal},
		},
	}
}

func assertExclusive(t *testing.T, s Session) {
	t.Helper()
	assert.False(t, s.Result != nil && s.Failure != nil, "result and failure held together")
	if s.Processing {
		assert.Nil(t, s.Result)
		assert.Nil(t, s.Failure)
	}
}

func TestNew_InitialState(t *testing.T) {
	assert.Equal(t, NeedsCredential, New(false).State())
	assert.Equal(t, Idle, New(true).State())
}

func TestApply_CredentialSubmitted(t *testing.T) {
	s, err := Apply(New(false), CredentialSubmitted{Key: "VALID_KEY"})
	require.NoError(t, err)
	assert.Equal(t, Idle, s.State())

	_, err = Apply(New(false), CredentialSubmitted{Key: "   "})
	assert.ErrorIs(t, err, ErrEmptyCredential)

	_, err = Apply(New(true), CredentialSubmitted{Key: "other"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApply_FileSelected(t *testing.T) {
	s, err := Apply(New(true), FileSelected{})
	require.NoError(t, err)
	assert.Equal(t, Processing, s.State())
	assertExclusive(t, s)

	_, err = Apply(s, FileSelected{})
	assert.ErrorIs(t, err, ErrBusy)

	same, err := Apply(New(false), FileSelected{})
	assert.ErrorIs(t, err, exams.ErrMissingCredential)
	assert.Equal(t, NeedsCredential, same.State())
}

func TestApply_AnalysisOutcome(t *testing.T) {
	processing := Session{HasCredential: true, Processing: true}

	s, err := Apply(processing, AnalysisSucceeded{Result: sampleResult()})
	require.NoError(t, err)
	assert.Equal(t, ShowingResult, s.State())
	assert.Len(t, s.Result.Exams, 1)
	assertExclusive(t, s)

	s, err = Apply(processing, AnalysisFailed{Err: fmt.Errorf("decode: %w", exams.ErrParse)})
	require.NoError(t, err)
	assert.Equal(t, ShowingError, s.State())
	assert.Equal(t, exams.KindParse, s.Failure.Kind)
	assertExclusive(t, s)

	s, err = Apply(processing, AnalysisSucceeded{})
	require.NoError(t, err)
	assert.Equal(t, exams.KindEmptyResponse, s.Failure.Kind)

	_, err = Apply(New(true), AnalysisSucceeded{Result: sampleResult()})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApply_AuthorizationFailureNeedsCredential(t *testing.T) {
	processing := Session{HasCredential: true, Processing: true}

	s, err := Apply(processing, AnalysisFailed{Err: exams.ErrAuthorization})
	require.NoError(t, err)
	assert.Equal(t, NeedsCredential, s.State())
	assert.False(t, s.HasCredential)
	require.NotNil(t, s.Failure)
	assert.Equal(t, exams.KindAuthorization, s.Failure.Kind)

	s, err = Apply(s, CredentialSubmitted{Key: "NEW_KEY"})
	require.NoError(t, err)
	assert.Equal(t, Idle, s.State())
	assert.Nil(t, s.Failure)
}

func TestApply_MissingCredentialDuringAnalysis(t *testing.T) {
	s, err := Apply(Session{HasCredential: true, Processing: true}, AnalysisFailed{Err: exams.ErrMissingCredential})
	require.NoError(t, err)
	assert.Equal(t, NeedsCredential, s.State())
	assert.Equal(t, exams.KindMissingCredential, s.Failure.Kind)
}

func TestApply_LogoutWithoutCredentialIsNoop(t *testing.T) {
	start := Session{Failure: FailureFrom(exams.ErrAuthorization)}
	s, err := Apply(start, Logout{})
	require.NoError(t, err)
	assert.Equal(t, start, s)
}

func TestState_MarshalText(t *testing.T) {
	b, err := ShowingResult.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "showing_result", string(b))
}

func TestApply_Reset(t *testing.T) {
	for _, start := range []Session{
		{HasCredential: true, Result: sampleResult()},
		{HasCredential: true, Failure: FailureFrom(exams.ErrEmptyResponse)},
	} {
		s, err := Apply(start, Reset{})
		require.NoError(t, err)
		assert.Equal(t, Idle, s.State())
		assert.Nil(t, s.Result)
		assert.Nil(t, s.Failure)
	}

	_, err := Apply(Session{HasCredential: true, Processing: true}, Reset{})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestApply_Logout(t *testing.T) {
	s, err := Apply(Session{HasCredential: true, Result: sampleResult()}, Logout{})
	require.NoError(t, err)
	assert.Equal(t, NeedsCredential, s.State())
	assert.Nil(t, s.Result)

	_, err = Apply(Session{HasCredential: true, Processing: true}, Logout{})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestApply_ExclusiveAcrossSequence(t *testing.T) {
	s := New(false)
	events := []Event{
		CredentialSubmitted{Key: "k"},
		FileSelected{},
		AnalysisSucceeded{Result: sampleResult()},
		Reset{},
		FileSelected{},
		AnalysisFailed{Err: exams.ErrEmptyResponse},
		Reset{},
		FileSelected{},
		AnalysisFailed{Err: exams.ErrAuthorization},
		CredentialSubmitted{Key: "k2"},
		Logout{},
	}
	for i, ev := range events {
		var err error
		s, err = Apply(s, ev)
		require.NoError(t, err, "event %d (%T)", i, ev)
		assertExclusive(t, s)
	}
	assert.Equal(t, NeedsCredential, s.State())
}
