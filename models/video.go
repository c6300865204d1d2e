package models

import "time"

// Video is a ledger row for media stored by the service. Every object uploaded to
// object storage has one; IsExternalLink rows only carry a URL.
type Video struct {
	ID                int       `json:"id" db:"id"`
	Title             string    `json:"title" db:"title"`
	VideoURL          string    `json:"videoUrl" db:"video_url"`
	ExternalStorageID *string   `json:"externalStorageId" db:"external_storage_id"`
	IsExternalLink    bool      `json:"isExternalLink" db:"is_external_link"`
	MimeType          *string   `json:"mimeType,omitempty" db:"mime_type"`
	MatchID           *int      `json:"matchId,omitempty" db:"match_id"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}

func (v Video) StorageID() string {
	if v.ExternalStorageID == nil {
		return ""
	}
	return *v.ExternalStorageID
}
