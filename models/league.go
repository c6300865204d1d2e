package models

import "time"

// League представляет лигу, которой принадлежат матчи.
type League struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	LogoURL   string    `json:"logo" db:"logo_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
