package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/vitos/crypto_liquidation_zones/internal/domain"
	"github.com/vitos/crypto_liquidation_zones/internal/usecase"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func listLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > maxListLimit {
		n = maxListLimit
	}
	return n, true
}

type statusResponse struct {
	usecase.ServiceStatus
	Uptime string                `json:"uptime"`
	Best   *domain.StrategyStats `json:"best_strategy,omitempty"`
	Worst  *domain.StrategyStats `json:"worst_strategy,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.service.Status()
	resp := statusResponse{
		ServiceStatus: st,
		Uptime:        time.Since(st.StartedAt).Truncate(time.Second).String(),
	}
	if best, ok := s.service.Book().BestStrategy(); ok {
		resp.Best = &best
	}
	if worst, ok := s.service.Book().WorstStrategy(); ok {
		resp.Worst = &worst
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.service.Book().Snapshots())
}

// handleGetBook serves one book as JSON, or as the notification table with
// ?format=text.
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("strategy")
	book := s.service.Book()

	if r.URL.Query().Get("format") == "text" {
		table, err := book.DisplaySnapshot(id)
		if err != nil {
			http.Error(w, "Strategy not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(table))
		return
	}

	snap, ok := book.Snapshot(id)
	if !ok {
		http.Error(w, "Strategy not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, snap)
}

type zonesResponse struct {
	Mean     float64                   `json:"mean"`
	Stdev    float64                   `json:"stdev"`
	Levels   map[int][]domain.Boundary `json:"levels"`
	Combined []domain.Boundary         `json:"combined"`
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	resp := zonesResponse{
		Mean:     s.zones.Mean(),
		Stdev:    s.zones.Stdev(),
		Levels:   make(map[int][]domain.Boundary, usecase.MaxLargeLevel),
		Combined: s.zones.CombinedTargetZones(),
	}
	for level := usecase.SmallZoneLevel; level <= usecase.MaxLargeLevel; level++ {
		resp.Levels[level] = s.zones.Level(level)
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		http.Error(w, "Watchlist disabled", http.StatusNotFound)
		return
	}
	s.writeJSON(w, s.watch.Report())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := listLimit(r)
	if !ok {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	history, err := s.tradeRepo.ListPositionHistory(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list position history", zap.Error(err))
		http.Error(w, "Failed to list history", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []*domain.ClosedPosition{}
	}
	s.writeJSON(w, history)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	limit, ok := listLimit(r)
	if !ok {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}
	signals, err := s.tradeRepo.ListEntrySignals(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list entry signals", zap.Error(err))
		http.Error(w, "Failed to list signals", http.StatusInternalServerError)
		return
	}
	if signals == nil {
		signals = []*domain.EntrySignalRecord{}
	}
	s.writeJSON(w, signals)
}

type evaluationView struct {
	Symbol      string            `json:"symbol"`
	Side        string            `json:"side"`
	Value       string            `json:"value"`
	Outcome     string            `json:"outcome"`
	ScaledClose float64           `json:"scaled_close"`
	ScaleFactor float64           `json:"scale_factor"`
	SmallZones  []domain.Boundary `json:"small_zones,omitempty"`
	LargeZone   *domain.ZoneMatch `json:"large_zone,omitempty"`
	ZScores     []domain.ZScore   `json:"zscores,omitempty"`
	Strategies  []string          `json:"strategies,omitempty"`
	At          time.Time         `json:"at"`
}

func (s *Server) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	recent := s.service.Recent()
	out := make([]evaluationView, 0, len(recent))
	for _, e := range recent {
		v := evaluationView{
			Symbol:      e.Liquidation.Symbol,
			Side:        string(e.Liquidation.Side),
			Value:       e.Value.StringFixed(2),
			Outcome:     string(e.Outcome),
			ScaledClose: e.ScaledClose,
			ScaleFactor: e.ScaleFactor,
			SmallZones:  e.SmallZones,
			LargeZone:   e.LargeZone,
			Strategies:  e.Strategies,
			At:          e.At,
		}
		if e.ZScores != nil {
			v.ZScores = e.ZScores.Scores
		}
		out = append(out, v)
	}
	s.writeJSON(w, out)
}
