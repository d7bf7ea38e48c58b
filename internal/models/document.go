// Package models defines the wire types exchanged with the ingestion and search service.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Status is the server-side ingestion phase of a document.
// Values outside the named constants are kept verbatim.
type Status string

const (
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// Terminal reports whether ingestion has finished, successfully or not.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// Document is the client's read-only snapshot of a server-owned document.
// Optional fields are empty when the server omits them or sends null.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	SourceType  string    `json:"source_type"`
	Status      Status    `json:"status"`
	StoragePath string    `json:"storage_path,omitempty"`
	URL         string    `json:"url,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   Timestamp `json:"created_at"`
}

// User is the account behind the current session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp accepts RFC 3339 times as well as the zone-less ISO form some
// servers emit. Zone-less values are read as UTC. A missing, null or
// unparseable value leaves the zero time.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	t.Time = parseTimestamp(raw)
	return nil
}

// MarshalJSON implements json.Marshaler; the zero time encodes as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func parseTimestamp(raw string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
