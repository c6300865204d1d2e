package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Dosada05/inmatch/models"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchInvalidLeague = errors.New("invalid league reference")
)

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByLeague(ctx context.Context, leagueID int) ([]models.Match, error)
	// Update writes teams, kickoff, scores and league. Status is changed only
	// through SetStatus / CompareAndSetStatus.
	Update(ctx context.Context, match *models.Match) error
	SetStatus(ctx context.Context, id int, status models.MatchStatus, completedAt *time.Time) error
	// CompareAndSetStatus changes the status only if the stored one still equals from.
	CompareAndSetStatus(ctx context.Context, id int, from, to models.MatchStatus, completedAt *time.Time) (bool, error)
	Delete(ctx context.Context, id int) error
	ListDueForKickoff(ctx context.Context, now time.Time) ([]models.Match, error)
	ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]int, error)
	// DeleteIfCompletedBefore removes the match only if it is still completed and
	// completed_at <= cutoff.
	DeleteIfCompletedBefore(ctx context.Context, id int, cutoff time.Time) (bool, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchSelectColumns = `
	m.id, m.league_id, m.team1_name, m.team1_logo, m.team2_name, m.team2_logo,
	m.kickoff_time, m.status, m.score_team1, m.score_team2, m.completed_at,
	m.created_at, m.updated_at,
	l.id, l.name, l.logo_url, l.created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	var league models.League
	err := row.Scan(
		&m.ID, &m.LeagueID, &m.Team1.Name, &m.Team1.LogoURL, &m.Team2.Name, &m.Team2.LogoURL,
		&m.KickoffTime, &m.Status, &m.ScoreTeam1, &m.ScoreTeam2, &m.CompletedAt,
		&m.CreatedAt, &m.UpdatedAt,
		&league.ID, &league.Name, &league.LogoURL, &league.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.League = &league
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, m *models.Match) error {
	query := `
		INSERT INTO matches (
			league_id, team1_name, team1_logo, team2_name, team2_logo,
			kickoff_time, status, score_team1, score_team2, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		m.LeagueID, m.Team1.Name, m.Team1.LogoURL, m.Team2.Name, m.Team2.LogoURL,
		m.KickoffTime, m.Status, m.ScoreTeam1, m.ScoreTeam2, m.CompletedAt,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if _, ok := pqViolation(err, pqForeignKeyViolation); ok {
			return ErrMatchInvalidLeague
		}
		return err
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchSelectColumns + `
		FROM matches m
		JOIN leagues l ON l.id = m.league_id
		WHERE m.id = $1`

	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByLeague(ctx context.Context, leagueID int) ([]models.Match, error) {
	query := `SELECT` + matchSelectColumns + `
		FROM matches m
		JOIN leagues l ON l.id = m.league_id
		WHERE m.league_id = $1
		ORDER BY m.kickoff_time ASC, m.id ASC`

	return r.queryMatches(ctx, query, leagueID)
}

func (r *postgresMatchRepository) ListDueForKickoff(ctx context.Context, now time.Time) ([]models.Match, error) {
	query := `SELECT` + matchSelectColumns + `
		FROM matches m
		JOIN leagues l ON l.id = m.league_id
		WHERE m.status = $1 AND m.kickoff_time <= $2
		ORDER BY m.kickoff_time ASC`

	return r.queryMatches(ctx, query, models.MatchStatusUpcoming, now)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, query string, args ...interface{}) ([]models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, m *models.Match) error {
	query := `
		UPDATE matches SET
			league_id = $1, team1_name = $2, team1_logo = $3, team2_name = $4, team2_logo = $5,
			kickoff_time = $6, score_team1 = $7, score_team2 = $8, updated_at = now()
		WHERE id = $9
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		m.LeagueID, m.Team1.Name, m.Team1.LogoURL, m.Team2.Name, m.Team2.LogoURL,
		m.KickoffTime, m.ScoreTeam1, m.ScoreTeam2, m.ID,
	).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchNotFound
		}
		if _, ok := pqViolation(err, pqForeignKeyViolation); ok {
			return ErrMatchInvalidLeague
		}
		return err
	}
	return nil
}

func (r *postgresMatchRepository) SetStatus(ctx context.Context, id int, status models.MatchStatus, completedAt *time.Time) error {
	query := `UPDATE matches SET status = $1, completed_at = $2, updated_at = now() WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, status, completedAt, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CompareAndSetStatus(ctx context.Context, id int, from, to models.MatchStatus, completedAt *time.Time) (bool, error) {
	query := `
		UPDATE matches SET status = $1, completed_at = $2, updated_at = now()
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, to, completedAt, id, from)
	if err != nil {
		return false, err
	}
	return affected(result)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]int, error) {
	query := `SELECT id FROM matches WHERE status = $1 AND completed_at <= $2 ORDER BY completed_at ASC`

	rows, err := r.db.QueryContext(ctx, query, models.MatchStatusCompleted, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *postgresMatchRepository) DeleteIfCompletedBefore(ctx context.Context, id int, cutoff time.Time) (bool, error) {
	query := `DELETE FROM matches WHERE id = $1 AND status = $2 AND completed_at <= $3`

	result, err := r.db.ExecContext(ctx, query, id, models.MatchStatusCompleted, cutoff)
	if err != nil {
		return false, err
	}
	return affected(result)
}
