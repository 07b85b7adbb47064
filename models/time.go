package models

import (
	"encoding/json"
	"time"
)

// UnixMillis is a time.Time that marshals to the epoch-millisecond integers
// used by the server wire contract.
type UnixMillis struct {
	time.Time
}

// NowMillis returns the current UTC time truncated to millisecond precision,
// matching what a round trip through the wire format preserves.
func NowMillis() UnixMillis {
	return UnixMillis{time.Now().UTC().Truncate(time.Millisecond)}
}

// MillisFromTime converts t to a UnixMillis, truncating sub-millisecond
// precision.
func MillisFromTime(t time.Time) UnixMillis {
	return UnixMillis{t.UTC().Truncate(time.Millisecond)}
}

// MarshalJSON implements json.Marshaler. The zero value marshals as 0.
func (m UnixMillis) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("0"), nil
	}
	return json.Marshal(m.UnixMilli())
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *UnixMillis) UnmarshalJSON(data []byte) error {
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	if ms == 0 {
		m.Time = time.Time{}
		return nil
	}
	m.Time = time.UnixMilli(ms).UTC()
	return nil
}
