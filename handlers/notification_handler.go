package handlers

import (
	"context"
	"net/http"
	"time"

	"salahStreakAPI/internal/notification"
	"salahStreakAPI/services"
)

type NotificationHandler struct {
	dispatcher    *services.NotificationDispatcher
	prayerService *services.PrayerService
	now           func() time.Time
}

func NewNotificationHandler(dispatcher *services.NotificationDispatcher, prayerService *services.PrayerService) *NotificationHandler {
	return &NotificationHandler{
		dispatcher:    dispatcher,
		prayerService: prayerService,
		now:           time.Now,
	}
}

// POST /api/v1/notifications/register-device
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req notification.RegisterDeviceRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	token := notification.DeviceToken{Token: req.Token, Platform: req.Platform, CreatedAt: h.now()}
	if err := h.dispatcher.RegisterDevice(ctx, token); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Device registered"})
}

// POST /api/v1/notifications/actions
func (h *NotificationHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req notification.ActionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.prayerService.HandleAction(ctx, &req, h.now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// GET /api/v1/notifications/pending
func (h *NotificationHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	reminders, err := h.dispatcher.PendingReminders(ctx)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if reminders == nil {
		reminders = []*notification.Reminder{}
	}

	respondWithJSON(w, http.StatusOK, notification.PendingRemindersResponse{
		Reminders: reminders,
		Count:     len(reminders),
	})
}
