package model

import (
	"encoding/json"
	"time"
)

// Photo is the metadata record bound to one image payload in the object store.
// Only AccessURL and AccessURLExpiresAt change after creation.
type Photo struct {
	ID                 string    `json:"id"`
	ObjectKey          string    `json:"object_key"`
	DisplayName        string    `json:"display_name"`
	Description        string    `json:"description"`
	ContentType        string    `json:"content_type"`
	SizeBytes          int64     `json:"size_bytes"`
	AccessURL          string    `json:"access_url"`
	AccessURLExpiresAt time.Time `json:"access_url_expires_at"`
	UploadedAt         time.Time `json:"uploaded_at"`
}

// URLExpired reports whether the access URL must be renewed at now.
// A URL expiring exactly at now counts as expired.
func (p *Photo) URLExpired(now time.Time) bool {
	return !p.AccessURLExpiresAt.After(now)
}

// MarshalJSON adds the derived url_expired flag to the wire form.
func (p Photo) MarshalJSON() ([]byte, error) {
	type plain Photo
	return json.Marshal(struct {
		plain
		URLExpired bool `json:"url_expired"`
	}{
		plain:      plain(p),
		URLExpired: p.URLExpired(time.Now()),
	})
}
