package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/inmatch/models"
)

var (
	ErrMatchDetailsNotFound     = errors.New("match details not found")
	ErrMatchDetailsExist        = errors.New("match details already exist")
	ErrMatchDetailsInvalidMatch = errors.New("invalid match reference")
)

type MatchDetailsRepository interface {
	Create(ctx context.Context, details *models.MatchDetails) error
	GetByMatchID(ctx context.Context, matchID int) (*models.MatchDetails, error)
	Update(ctx context.Context, details *models.MatchDetails) error
	// ListReferencingStorageID returns every details row with a video stored under storageID.
	ListReferencingStorageID(ctx context.Context, storageID string) ([]models.MatchDetails, error)
}

type postgresMatchDetailsRepository struct {
	db *sql.DB
}

func NewPostgresMatchDetailsRepository(db *sql.DB) MatchDetailsRepository {
	return &postgresMatchDetailsRepository{db: db}
}

const matchDetailsColumns = `id, match_id, videos, stats, goals_details, created_at, updated_at`

func scanMatchDetails(row rowScanner) (*models.MatchDetails, error) {
	d := &models.MatchDetails{}
	err := row.Scan(&d.ID, &d.MatchID, &d.Videos, &d.Stats, &d.GoalsDetails, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if d.Videos == nil {
		d.Videos = models.VideoList{}
	}
	return d, nil
}

func (r *postgresMatchDetailsRepository) Create(ctx context.Context, d *models.MatchDetails) error {
	query := `
		INSERT INTO match_details (match_id, videos, stats, goals_details)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, d.MatchID, d.Videos, d.Stats, d.GoalsDetails).
		Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if c, ok := pqViolation(err, pqUniqueViolation); ok && c == "match_details_match_id_key" {
			return ErrMatchDetailsExist
		}
		if _, ok := pqViolation(err, pqForeignKeyViolation); ok {
			return ErrMatchDetailsInvalidMatch
		}
		return err
	}
	return nil
}

func (r *postgresMatchDetailsRepository) GetByMatchID(ctx context.Context, matchID int) (*models.MatchDetails, error) {
	query := `SELECT ` + matchDetailsColumns + ` FROM match_details WHERE match_id = $1`

	d, err := scanMatchDetails(r.db.QueryRowContext(ctx, query, matchID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchDetailsNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *postgresMatchDetailsRepository) Update(ctx context.Context, d *models.MatchDetails) error {
	query := `
		UPDATE match_details SET videos = $1, stats = $2, goals_details = $3, updated_at = now()
		WHERE match_id = $4
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, d.Videos, d.Stats, d.GoalsDetails, d.MatchID).Scan(&d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchDetailsNotFound
		}
		return err
	}
	return nil
}

func (r *postgresMatchDetailsRepository) ListReferencingStorageID(ctx context.Context, storageID string) ([]models.MatchDetails, error) {
	containment, err := storageContainment(storageID)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + matchDetailsColumns + ` FROM match_details WHERE videos @> $1::jsonb`

	rows, err := r.db.QueryContext(ctx, query, containment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.MatchDetails, 0)
	for rows.Next() {
		d, err := scanMatchDetails(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
