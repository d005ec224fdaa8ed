package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	appexams "github.com/bryanwahyu/bioscan/internal/application/exams"
	"github.com/bryanwahyu/bioscan/internal/domain/credentials"
	"github.com/bryanwahyu/bioscan/internal/domain/exams"
	domain "github.com/bryanwahyu/bioscan/internal/domain/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n%%EOF")

// scriptedAnalyzer answers by credential; gate, when set, holds the call.
type scriptedAnalyzer struct {
	gate chan struct{}
}

func (a *scriptedAnalyzer) Analyze(ctx context.Context, _ exams.Payload, credential string) (*exams.AnalysisResponse, error) {
	if a.gate != nil {
		select {
		case <-a.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	switch credential {
	case "VALID_KEY":
		return &exams.AnalysisResponse{
			Summary: "Exames dentro da normalidade.",
			Exams:   []exams.ExamItem{{Name: "Glicose", MeasuredValue: "90", Status: exams.StatusNormal}},
		}, nil
	case "EMPTY_KEY":
		return nil, exams.ErrEmptyResponse
	default:
		return nil, exams.ErrAuthorization
	}
}

type failingStore struct{ credentials.Store }

func (failingStore) Get(context.Context) (string, error) { return "", errors.New("disk gone") }

func newController(t *testing.T, an exams.Analyzer, key string) (*Controller, credentials.Store) {
	t.Helper()
	store := credentials.NewSlot(credentials.NewMemoryStore(), "web:test")
	if key != "" {
		require.NoError(t, store.Set(context.Background(), key))
	}
	c, err := NewController(context.Background(), "test", store, appexams.NewService(nil, an, nil), Options{Timeout: 5 * time.Second})
	require.NoError(t, err)
	return c, store
}

func waitDone(t *testing.T, c *Controller) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}

func TestController_InitialState(t *testing.T) {
	c, _ := newController(t, &scriptedAnalyzer{}, "")
	assert.Equal(t, domain.NeedsCredential, c.Snapshot().State)

	c, _ = newController(t, &scriptedAnalyzer{}, "VALID_KEY")
	assert.Equal(t, domain.Idle, c.Snapshot().State)

	_, err := NewController(context.Background(), "x", failingStore{}, appexams.NewService(nil, &scriptedAnalyzer{}, nil), Options{})
	assert.ErrorIs(t, err, exams.ErrUnexpected)
}

func TestController_ValidKeyScenario(t *testing.T) {
	c, store := newController(t, &scriptedAnalyzer{}, "")
	ctx := context.Background()

	require.NoError(t, c.SubmitCredential(ctx, " VALID_KEY "))
	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "VALID_KEY", got)

	require.NoError(t, c.SelectFile(ctx, "exam.pdf", bytes.NewReader(samplePDF)))
	waitDone(t, c)

	snap := c.Snapshot()
	assert.Equal(t, domain.ShowingResult, snap.State)
	require.NotNil(t, snap.Result)
	require.Len(t, snap.Result.Exams, 1)
	assert.Equal(t, exams.StatusNormal, snap.Result.Exams[0].Status)
	assert.Nil(t, snap.Failure)

	require.NoError(t, c.Reset(ctx))
	assert.Equal(t, domain.Idle, c.Snapshot().State)
	assert.Nil(t, c.Snapshot().Result)
}

func TestController_AuthorizationClearsCredential(t *testing.T) {
	c, store := newController(t, &scriptedAnalyzer{}, "REVOKED_KEY")
	ctx := context.Background()

	require.NoError(t, c.SelectFile(ctx, "exam.pdf", bytes.NewReader(samplePDF)))
	waitDone(t, c)

	snap := c.Snapshot()
	assert.Equal(t, domain.NeedsCredential, snap.State)
	require.NotNil(t, snap.Failure)
	assert.Equal(t, exams.KindAuthorization, snap.Failure.Kind)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, c.SubmitCredential(ctx, "VALID_KEY"))
	assert.Equal(t, domain.Idle, c.Snapshot().State)
}

func TestController_FileReadError(t *testing.T) {
	c, _ := newController(t, &scriptedAnalyzer{}, "VALID_KEY")

	require.NoError(t, c.SelectFile(context.Background(), "notes.txt", strings.NewReader("not a pdf")))
	snap := c.Snapshot()
	assert.Equal(t, domain.ShowingError, snap.State)
	assert.Equal(t, "Erro ao ler o arquivo.", snap.Failure.Message)
}

func TestController_EmptyResponse(t *testing.T) {
	c, _ := newController(t, &scriptedAnalyzer{}, "EMPTY_KEY")

	require.NoError(t, c.SelectFile(context.Background(), "exam.pdf", bytes.NewReader(samplePDF)))
	waitDone(t, c)
	snap := c.Snapshot()
	assert.Equal(t, domain.ShowingError, snap.State)
	assert.Equal(t, exams.KindEmptyResponse, snap.Failure.Kind)
}

func TestController_BusyWhileProcessing(t *testing.T) {
	an := &scriptedAnalyzer{gate: make(chan struct{})}
	c, _ := newController(t, an, "VALID_KEY")
	ctx := context.Background()

	require.NoError(t, c.SelectFile(ctx, "exam.pdf", bytes.NewReader(samplePDF)))
	assert.Equal(t, domain.Processing, c.Snapshot().State)
	assert.True(t, c.Busy())

	assert.ErrorIs(t, c.SelectFile(ctx, "exam.pdf", bytes.NewReader(samplePDF)), domain.ErrBusy)
	assert.ErrorIs(t, c.Reset(ctx), domain.ErrBusy)
	assert.ErrorIs(t, c.Logout(ctx), domain.ErrBusy)

	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Wait(short), context.DeadlineExceeded)

	close(an.gate)
	waitDone(t, c)
	assert.Equal(t, domain.ShowingResult, c.Snapshot().State)
}

func TestController_SelectFileWithoutCredential(t *testing.T) {
	c, _ := newController(t, &scriptedAnalyzer{}, "")
	err := c.SelectFile(context.Background(), "exam.pdf", bytes.NewReader(samplePDF))
	assert.ErrorIs(t, err, exams.ErrMissingCredential)
	assert.Equal(t, domain.NeedsCredential, c.Snapshot().State)
}

func TestController_Logout(t *testing.T) {
	c, store := newController(t, &scriptedAnalyzer{}, "VALID_KEY")
	ctx := context.Background()

	require.NoError(t, c.SelectFile(ctx, "exam.pdf", bytes.NewReader(samplePDF)))
	waitDone(t, c)
	require.NoError(t, c.Logout(ctx))

	snap := c.Snapshot()
	assert.Equal(t, domain.NeedsCredential, snap.State)
	assert.Nil(t, snap.Result)
	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestController_AnalysisTimeout(t *testing.T) {
	an := &scriptedAnalyzer{gate: make(chan struct{})}
	store := credentials.NewSlot(credentials.NewMemoryStore(), "web:t")
	require.NoError(t, store.Set(context.Background(), "VALID_KEY"))
	c, err := NewController(context.Background(), "t", store, appexams.NewService(nil, an, nil), Options{Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, c.SelectFile(context.Background(), "exam.pdf", bytes.NewReader(samplePDF)))
	waitDone(t, c)

	snap := c.Snapshot()
	assert.Equal(t, domain.ShowingError, snap.State)
	assert.Equal(t, exams.KindUnexpected, snap.Failure.Kind)
}
