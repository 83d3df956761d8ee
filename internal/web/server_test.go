package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"github.com/vitos/crypto_liquidation_zones/internal/usecase"
	"go.uber.org/zap"
)

type stubRepo struct {
	history []*domain.ClosedPosition
	signals []*domain.EntrySignalRecord
	err     error
	limit   int
}

func (r *stubRepo) SaveEntrySignal(context.Context, string, *domain.EntrySignal) error { return nil }

func (r *stubRepo) ListEntrySignals(_ context.Context, limit int) ([]*domain.EntrySignalRecord, error) {
	r.limit = limit
	return r.signals, r.err
}

func (r *stubRepo) SavePositionHistory(context.Context, *domain.ClosedPosition) error { return nil }

func (r *stubRepo) ListPositionHistory(_ context.Context, limit int) ([]*domain.ClosedPosition, error) {
	r.limit = limit
	return r.history, r.err
}

func newTestServer(t *testing.T, repo *stubRepo) (*Server, *usecase.PositionBook) {
	t.Helper()
	table, err := usecase.BuildZoneTable(usecase.DefaultConstants)
	require.NoError(t, err)

	strategies := []usecase.Strategy{
		{ID: "s1", Label: "TP/SL", Exit: usecase.TargetStop{TakeProfit: 1, StopLoss: -1}},
		{ID: "s2", Label: "Other", Exit: usecase.TargetStop{TakeProfit: 2, StopLoss: -2}},
	}
	book := usecase.NewPositionBook(strategies, nil, nil, repo, zap.NewNop())
	svc := usecase.NewLiquidationService(nil, book, nil, 4, time.Hour, zap.NewNop())
	return NewServer(0, svc, table, repo, nil, zap.NewNop()), book
}

func serve(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHandleStatus(t *testing.T) {
	s, book := newTestServer(t, &stubRepo{})
	require.True(t, book.Register("s1", domain.Position{Symbol: "BTCUSDT", Side: domain.SideLong, EntryPrice: 27.15, ScaleFactor: 1000}))

	rec := serve(s, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["open_total"])
	assert.Equal(t, []any{"BTCUSDT"}, body["held_symbols"])
}

func TestHandleBooks(t *testing.T) {
	s, book := newTestServer(t, &stubRepo{})
	require.True(t, book.Register("s1", domain.Position{Symbol: "ETHUSDT", Side: domain.SideShort, EntryPrice: 20, ScaleFactor: 100}))

	rec := serve(s, "/api/books")
	require.Equal(t, http.StatusOK, rec.Code)
	var books []domain.BookSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &books))
	require.Len(t, books, 2)

	rec = serve(s, "/api/books/s1")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap domain.BookSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Open, 1)
	assert.Equal(t, "ETHUSDT", snap.Open[0].Symbol)

	rec = serve(s, "/api/books/s1?format=text")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Open Profit")

	assert.Equal(t, http.StatusNotFound, serve(s, "/api/books/nope").Code)
	assert.Equal(t, http.StatusNotFound, serve(s, "/api/books/nope?format=text").Code)
}

func TestHandleZones(t *testing.T) {
	s, _ := newTestServer(t, &stubRepo{})
	rec := serve(s, "/api/zones")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Levels   map[string][]domain.Boundary `json:"levels"`
		Combined []domain.Boundary            `json:"combined"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Levels["1"])
	assert.NotEmpty(t, body.Combined)
}

func TestHandleHistory(t *testing.T) {
	repo := &stubRepo{history: []*domain.ClosedPosition{{Position: domain.Position{ID: "p1", Symbol: "BTCUSDT"}, Reason: "tp"}}}
	s, _ := newTestServer(t, repo)

	rec := serve(s, "/api/history?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, repo.limit)
	assert.Contains(t, rec.Body.String(), `"id":"p1"`)

	assert.Equal(t, http.StatusBadRequest, serve(s, "/api/history?limit=abc").Code)

	repo.err = errors.New("db gone")
	assert.Equal(t, http.StatusInternalServerError, serve(s, "/api/history").Code)
	assert.Equal(t, defaultListLimit, repo.limit)
}

func TestHandleSignals_EmptyIsArray(t *testing.T) {
	s, _ := newTestServer(t, &stubRepo{})
	rec := serve(s, "/api/signals")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandleWatch_Disabled(t *testing.T) {
	s, _ := newTestServer(t, &stubRepo{})
	assert.Equal(t, http.StatusNotFound, serve(s, "/api/watch").Code)
}

func TestHandleEvaluations_Empty(t *testing.T) {
	s, _ := newTestServer(t, &stubRepo{})
	rec := serve(s, "/api/evaluations")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &stubRepo{})
	rec := serve(s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "acme_")
}
