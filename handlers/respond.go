package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/utils"
)

const requestTimeout = 5 * time.Second

var validate = validator.New()

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps domain errors to status codes. Anything
// unrecognised is logged and reported as a 500.
func respondWithServiceError(w http.ResponseWriter, err error) {
	code, message := serviceError(err)
	respondWithError(w, code, message)
}

func serviceError(err error) (int, string) {
	switch {
	case errors.Is(err, prayer.ErrUnknownPrayer),
		errors.Is(err, prayer.ErrInvalidIdentifier):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, prayer.ErrEntryNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, prayer.ErrInvalidTransition),
		errors.Is(err, prayer.ErrDayClosed),
		errors.Is(err, prayer.ErrDayAlreadyClosed),
		errors.Is(err, prayer.ErrDayStillOpen):
		return http.StatusConflict, err.Error()
	case errors.Is(err, prayer.ErrMissingCoordinates),
		errors.Is(err, prayer.ErrCalculationUnavailable),
		errors.Is(err, prayer.ErrDayNotGenerated):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		log.Error().Err(err).Msg("request failed")
		return http.StatusInternalServerError, "Internal server error"
	}
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func prayerFromPath(r *http.Request) (prayer.Kind, error) {
	return prayer.ParseKind(mux.Vars(r)["prayer"])
}

// dateParam reads ?date=yyyy-MM-dd, defaulting to today in loc.
func dateParam(r *http.Request, loc *time.Location, now time.Time) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return utils.StartOfDay(now, loc), nil
	}
	return utils.ParseDate(raw, loc)
}
