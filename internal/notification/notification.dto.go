package notification

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

type ActionRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Action     string `json:"action" validate:"required,oneof=MARK_DONE SNOOZE"`
}

type PendingRemindersResponse struct {
	Reminders []*Reminder `json:"reminders"`
	Count     int         `json:"count"`
}
