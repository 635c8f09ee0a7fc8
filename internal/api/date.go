package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// messageDateLayouts are tried in order. Zone-less forms are read as UTC.
var messageDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// messageDate decodes a submitted message date. It accepts RFC3339, the
// space-separated form with or without a zone, a bare date and unix seconds
// as a number or numeric string. Anything else leaves Time zero and keeps the
// input in Invalid, so one bad date never rejects a batch.
type messageDate struct {
	Time    time.Time
	Invalid string
}

func (d *messageDate) UnmarshalJSON(b []byte) error {
	*d = messageDate{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			d.Invalid = raw
			return nil
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}

	if t, ok := parseMessageDate(raw); ok {
		d.Time = t
		return nil
	}
	d.Invalid = raw
	return nil
}

func parseMessageDate(s string) (time.Time, bool) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	for _, layout := range messageDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
