package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/widget"
	"salahStreakAPI/services"
	"salahStreakAPI/utils"
)

// WidgetHandler serves the compact snapshot and the one-tap intent used by
// home-screen widgets.
type WidgetHandler struct {
	prayerService *services.PrayerService
	published     widget.Reader
	now           func() time.Time
}

// NewWidgetHandler serves snapshots from the prayer service. When the
// service cannot build one, the last published snapshot is served instead
// if published is set.
func NewWidgetHandler(prayerService *services.PrayerService, published widget.Reader) *WidgetHandler {
	return &WidgetHandler{
		prayerService: prayerService,
		published:     published,
		now:           time.Now,
	}
}

// GET /api/v1/widget
func (h *WidgetHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	snap, err := h.prayerService.Snapshot(ctx, h.now())
	if err != nil {
		if cached, ok := h.lastPublished(ctx, err); ok {
			respondWithJSON(w, http.StatusOK, cached)
			return
		}
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, snap)
}

func (h *WidgetHandler) lastPublished(ctx context.Context, cause error) (widget.Snapshot, bool) {
	if h.published == nil {
		return widget.Snapshot{}, false
	}
	snap, err := h.published.Latest(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("no published widget snapshot to fall back to")
		return widget.Snapshot{}, false
	}
	log.Warn().Err(cause).Time("updated_at", snap.UpdatedAt).Msg("serving last published widget snapshot")
	return snap, true
}

// POST /api/v1/widget/prayers/{prayer}/done
func (h *WidgetHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	kind, err := prayerFromPath(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	now := h.now()
	if _, err := h.prayerService.MarkDone(ctx, utils.StartOfDay(now, h.prayerService.Location()), kind, prayer.SourceApp, now); err != nil {
		respondWithServiceError(w, err)
		return
	}

	snap, err := h.prayerService.Snapshot(ctx, now)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, snap)
}
