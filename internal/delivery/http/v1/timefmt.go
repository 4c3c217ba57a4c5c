package v1

import (
	"errors"
	"time"
)

// displayLayout is how every timestamp leaves the API.
const displayLayout = time.DateTime

var errInvalidDate = errors.New("dateDue must be RFC 3339 or YYYY-MM-DD HH:mm:ss")

func (h *handlerImpl) formatTime(t time.Time) string {
	return t.In(h.location).Format(displayLayout)
}

func (h *handlerImpl) formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := h.formatTime(*t)
	return &formatted
}

// parseTime accepts RFC 3339, or the display layout and a bare date
// interpreted in the display zone, so values read from the API can be
// sent back unchanged.
func (h *handlerImpl) parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err == nil {
		return t, nil
	}
	for _, layout := range []string{displayLayout, time.DateOnly} {
		t, err = time.ParseInLocation(layout, value, h.location)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, errInvalidDate
}

func (h *handlerImpl) parseTimePtr(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := h.parseTime(*value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
