package models

import "time"

type MatchStatus string

const (
	MatchStatusUpcoming  MatchStatus = "upcoming"
	MatchStatusOngoing   MatchStatus = "ongoing"
	MatchStatusCompleted MatchStatus = "completed"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusUpcoming, MatchStatusOngoing, MatchStatusCompleted:
		return true
	}
	return false
}

// rank orders statuses along the lifecycle, used to detect admin overrides.
func (s MatchStatus) rank() int {
	switch s {
	case MatchStatusUpcoming:
		return 0
	case MatchStatusOngoing:
		return 1
	case MatchStatusCompleted:
		return 2
	}
	return -1
}

// IsReverseOf reports whether moving from prev to s goes backwards in the lifecycle.
func (s MatchStatus) IsReverseOf(prev MatchStatus) bool {
	return s.rank() < prev.rank()
}

type TeamInfo struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo"`
}

// Match представляет матч между двумя командами внутри лиги.
type Match struct {
	ID          int         `json:"id" db:"id"`
	LeagueID    int         `json:"leagueId" db:"league_id"`
	Team1       TeamInfo    `json:"team1" db:"-"`
	Team2       TeamInfo    `json:"team2" db:"-"`
	KickoffTime time.Time   `json:"time" db:"kickoff_time"`
	Status      MatchStatus `json:"status" db:"status"`
	ScoreTeam1  int         `json:"scoreTeam1" db:"score_team1"`
	ScoreTeam2  int         `json:"scoreTeam2" db:"score_team2"`
	CompletedAt *time.Time  `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`

	League *League `json:"league,omitempty" db:"-"`
}
