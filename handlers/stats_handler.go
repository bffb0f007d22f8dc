package handlers

import (
	"context"
	"net/http"
	"time"

	"salahStreakAPI/services"
)

type StatsHandler struct {
	statsService *services.StatsService
	now          func() time.Time
}

func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
		now:          time.Now,
	}
}

// GET /api/v1/stats
func (h *StatsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := h.statsService.Summary(ctx)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// GET /api/v1/stats/weekly
func (h *StatsHandler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	grid, err := h.statsService.WeeklyGrid(ctx, h.now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, grid)
}

// GET /api/v1/stats/breakdown
func (h *StatsHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	breakdown, err := h.statsService.Breakdown(ctx, h.now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"prayers": breakdown})
}

// GET /api/v1/badges
func (h *StatsHandler) GetBadges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	badges, err := h.statsService.Badges(ctx)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"badges": badges})
}
