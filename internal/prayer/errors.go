package prayer

import "errors"

var (
	ErrCalculationUnavailable = errors.New("prayer times unavailable for this date and location")
	ErrMissingCoordinates     = errors.New("coordinates are not set")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrUnknownPrayer          = errors.New("unknown prayer")
	ErrEntryNotFound          = errors.New("prayer entry not found")
	ErrDayNotGenerated        = errors.New("day has no prayer entries yet")
	ErrDayAlreadyGenerated    = errors.New("day entries already generated")
	ErrDayClosed              = errors.New("day is already closed")
	ErrDayAlreadyClosed       = errors.New("day end already processed")
	ErrDayStillOpen           = errors.New("day still has open prayer windows")
	ErrDayNotFinalized        = errors.New("day still has pending entries")
	ErrInvalidIdentifier      = errors.New("invalid reminder identifier")
)
