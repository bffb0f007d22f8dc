package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/services"
	"salahStreakAPI/utils"
)

type PrayerHandler struct {
	prayerService *services.PrayerService
	now           func() time.Time
}

func NewPrayerHandler(prayerService *services.PrayerService) *PrayerHandler {
	return &PrayerHandler{
		prayerService: prayerService,
		now:           time.Now,
	}
}

// GET /api/v1/today
func (h *PrayerHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.prayerService.CurrentState(ctx, h.now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// POST /api/v1/recompute
func (h *PrayerHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.prayerService.Recompute(ctx, h.now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

type transitionFunc func(ctx context.Context, date time.Time, kind prayer.Kind, now time.Time) (*services.TransitionResult, error)

// POST /api/v1/prayers/{prayer}/done
func (h *PrayerHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, date time.Time, kind prayer.Kind, now time.Time) (*services.TransitionResult, error) {
		return h.prayerService.MarkDone(ctx, date, kind, prayer.SourceApp, now)
	})
}

// POST /api/v1/prayers/{prayer}/qada
func (h *PrayerHandler) MarkQada(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, date time.Time, kind prayer.Kind, now time.Time) (*services.TransitionResult, error) {
		return h.prayerService.MarkQada(ctx, date, kind, prayer.SourceApp, now)
	})
}

// POST /api/v1/prayers/{prayer}/undo-done
func (h *PrayerHandler) UndoDone(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.prayerService.UndoDone)
}

// POST /api/v1/prayers/{prayer}/undo-qada
func (h *PrayerHandler) UndoQada(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.prayerService.UndoQada)
}

func (h *PrayerHandler) transition(w http.ResponseWriter, r *http.Request, apply transitionFunc) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	kind, err := prayerFromPath(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	now := h.now()
	date, err := dateParam(r, h.prayerService.Location(), now)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := apply(ctx, date, kind, now)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// POST /api/v1/days/{date}/close
func (h *PrayerHandler) CloseDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	date, err := utils.ParseDate(mux.Vars(r)["date"], h.prayerService.Location())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	closures, err := h.prayerService.CloseDay(ctx, date, h.now())
	if err != nil {
		if len(closures) == 0 {
			respondWithServiceError(w, err)
			return
		}
		// Earlier days were committed before the failure.
		code, message := serviceError(err)
		respondWithJSON(w, code, map[string]interface{}{"error": message, "closed": closures})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"closed": closures})
}

// GET /api/v1/windows?date=yyyy-MM-dd
func (h *PrayerHandler) GetWindows(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	date, err := dateParam(r, h.prayerService.Location(), h.now())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	windows, err := h.prayerService.Windows(ctx, date)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, windows)
}

// GET /api/v1/settings
func (h *PrayerHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	settings, err := h.prayerService.Settings(ctx)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, settings)
}

// PUT /api/v1/settings
func (h *PrayerHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req prayer.UpdateSettingsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := h.prayerService.UpdateSettings(ctx, &req, h.now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, settings)
}
