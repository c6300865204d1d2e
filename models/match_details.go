package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// MatchStats holds post-match statistics, each formatted as "A - B".
type MatchStats struct {
	Possession string `json:"possession"`
	Shots      string `json:"shots"`
	Fouls      string `json:"fouls"`
	Corners    string `json:"corners"`
}

type Goal struct {
	Player string `json:"player"`
	Minute string `json:"minute"`
}

type GoalsDetails struct {
	Team1 []Goal `json:"team1"`
	Team2 []Goal `json:"team2"`
}

// VideoRef is the persisted form of a video attached to match details.
// ExternalStorageID is set only for files uploaded to object storage.
type VideoRef struct {
	ID                string  `json:"id,omitempty"`
	Title             string  `json:"title"`
	VideoURL          string  `json:"videoUrl"`
	ExternalStorageID *string `json:"externalStorageId"`
	IsExternalLink    bool    `json:"isExternalLink"`
}

// StorageID returns the object storage key, or "" for external links.
func (v VideoRef) StorageID() string {
	if v.ExternalStorageID == nil {
		return ""
	}
	return *v.ExternalStorageID
}

type VideoList []VideoRef

type MatchDetails struct {
	ID           int          `json:"id" db:"id"`
	MatchID      int          `json:"matchId" db:"match_id"`
	Videos       VideoList    `json:"videos" db:"videos"`
	Stats        MatchStats   `json:"stats" db:"stats"`
	GoalsDetails GoalsDetails `json:"goalsDetails" db:"goals_details"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time    `json:"updatedAt" db:"updated_at"`
}

// DefaultMatchStats matches the zero state shown before any stats are entered.
func DefaultMatchStats() MatchStats {
	return MatchStats{Possession: "0 - 0", Shots: "0 - 0", Fouls: "0 - 0", Corners: "0 - 0"}
}

// JSONB columns.

func (l VideoList) Value() (driver.Value, error) {
	if l == nil {
		l = VideoList{}
	}
	return json.Marshal(l)
}

func (l *VideoList) Scan(src any) error {
	return scanJSON(src, l)
}

func (s MatchStats) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *MatchStats) Scan(src any) error {
	return scanJSON(src, s)
}

func (g GoalsDetails) Value() (driver.Value, error) {
	if g.Team1 == nil {
		g.Team1 = []Goal{}
	}
	if g.Team2 == nil {
		g.Team2 = []Goal{}
	}
	return json.Marshal(g)
}

func (g *GoalsDetails) Scan(src any) error {
	return scanJSON(src, g)
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported type for JSONB column")
	}
}
