package domain

import (
	"encoding/json"
	"fmt"
)

// Event is the payload carried by a channel notification: either a minimal
// reference {"id": ...} requiring resolution, or a full legacy record inline.
type Event struct {
	Record RawRecord
}

// DecodeEvent parses a notification payload. A malformed payload yields a
// DecodeError.
func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev.Record); err != nil {
		return Event{}, &DecodeError{Err: err}
	}
	return ev, nil
}

// IsReference reports whether the payload was a minimal reference: exactly
// one key, named "id". Anything else is treated as a complete legacy record.
func (e Event) IsReference() bool {
	return e.Record.Len() == 1 && e.Record.Has("id")
}

// ID returns the record identifier as a string. JSON numbers keep their
// literal form ("42" stays "42"). A null id yields "".
func (e Event) ID() string {
	v, ok := e.Record.Get("id")
	if !ok {
		return ""
	}
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
