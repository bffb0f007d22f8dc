package handlers

import "github.com/gorilla/mux"

// Set groups the API handlers so main and the tests mount the same routes.
type Set struct {
	Prayer       *PrayerHandler
	Stats        *StatsHandler
	Widget       *WidgetHandler
	Notification *NotificationHandler
}

// Register mounts the owner API on r, which is expected to sit behind the
// auth middleware under /api/v1.
func (s *Set) Register(r *mux.Router) {
	r.HandleFunc("/today", s.Prayer.GetToday).Methods("GET")
	r.HandleFunc("/recompute", s.Prayer.Recompute).Methods("POST")
	r.HandleFunc("/prayers/{prayer}/done", s.Prayer.MarkDone).Methods("POST")
	r.HandleFunc("/prayers/{prayer}/qada", s.Prayer.MarkQada).Methods("POST")
	r.HandleFunc("/prayers/{prayer}/undo-done", s.Prayer.UndoDone).Methods("POST")
	r.HandleFunc("/prayers/{prayer}/undo-qada", s.Prayer.UndoQada).Methods("POST")
	r.HandleFunc("/days/{date}/close", s.Prayer.CloseDay).Methods("POST")
	r.HandleFunc("/windows", s.Prayer.GetWindows).Methods("GET")
	r.HandleFunc("/settings", s.Prayer.GetSettings).Methods("GET")
	r.HandleFunc("/settings", s.Prayer.UpdateSettings).Methods("PUT")

	r.HandleFunc("/stats", s.Stats.GetSummary).Methods("GET")
	r.HandleFunc("/stats/weekly", s.Stats.GetWeekly).Methods("GET")
	r.HandleFunc("/stats/breakdown", s.Stats.GetBreakdown).Methods("GET")
	r.HandleFunc("/badges", s.Stats.GetBadges).Methods("GET")

	r.HandleFunc("/widget", s.Widget.GetSnapshot).Methods("GET")
	r.HandleFunc("/widget/prayers/{prayer}/done", s.Widget.MarkDone).Methods("POST")

	r.HandleFunc("/notifications/register-device", s.Notification.RegisterDevice).Methods("POST")
	r.HandleFunc("/notifications/actions", s.Notification.HandleAction).Methods("POST")
	r.HandleFunc("/notifications/pending", s.Notification.GetPending).Methods("GET")
}
