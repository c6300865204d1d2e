package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/inmatch/models"
)

var (
	ErrLeagueNotFound     = errors.New("league not found")
	ErrLeagueNameConflict = errors.New("league name conflict")
	ErrLeagueInUse        = errors.New("league cannot be deleted as it has matches")
)

type LeagueRepository interface {
	Create(ctx context.Context, league *models.League) error
	GetByID(ctx context.Context, id int) (*models.League, error)
	List(ctx context.Context) ([]models.League, error)
	Update(ctx context.Context, league *models.League) error
	Delete(ctx context.Context, id int) error
}

type postgresLeagueRepository struct {
	db *sql.DB
}

func NewPostgresLeagueRepository(db *sql.DB) LeagueRepository {
	return &postgresLeagueRepository{db: db}
}

func (r *postgresLeagueRepository) Create(ctx context.Context, league *models.League) error {
	query := `INSERT INTO leagues (name, logo_url) VALUES ($1, $2) RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, league.Name, league.LogoURL).Scan(&league.ID, &league.CreatedAt)
	if err != nil {
		if c, ok := pqViolation(err, pqUniqueViolation); ok && c == "leagues_name_key" {
			return ErrLeagueNameConflict
		}
		return err
	}
	return nil
}

func (r *postgresLeagueRepository) GetByID(ctx context.Context, id int) (*models.League, error) {
	query := `SELECT id, name, logo_url, created_at FROM leagues WHERE id = $1`

	var league models.League
	err := r.db.QueryRowContext(ctx, query, id).Scan(&league.ID, &league.Name, &league.LogoURL, &league.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeagueNotFound
		}
		return nil, err
	}
	return &league, nil
}

func (r *postgresLeagueRepository) List(ctx context.Context) ([]models.League, error) {
	query := `SELECT id, name, logo_url, created_at FROM leagues ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leagues := make([]models.League, 0)
	for rows.Next() {
		var league models.League
		if err := rows.Scan(&league.ID, &league.Name, &league.LogoURL, &league.CreatedAt); err != nil {
			return nil, err
		}
		leagues = append(leagues, league)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return leagues, nil
}

func (r *postgresLeagueRepository) Update(ctx context.Context, league *models.League) error {
	query := `UPDATE leagues SET name = $1, logo_url = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, league.Name, league.LogoURL, league.ID)
	if err != nil {
		if c, ok := pqViolation(err, pqUniqueViolation); ok && c == "leagues_name_key" {
			return ErrLeagueNameConflict
		}
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}

func (r *postgresLeagueRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM leagues WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if _, ok := pqViolation(err, pqForeignKeyViolation); ok {
			return ErrLeagueInUse
		}
		return err
	}
	return checkAffectedRows(result, ErrLeagueNotFound)
}
