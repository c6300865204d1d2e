package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/inmatch/models"
)

var (
	ErrVideoNotFound        = errors.New("video not found")
	ErrVideoStorageConflict = errors.New("video with this storage id already exists")
)

type VideoRepository interface {
	Create(ctx context.Context, video *models.Video) error
	GetByID(ctx context.Context, id int) (*models.Video, error)
	GetByStorageID(ctx context.Context, storageID string) (*models.Video, error)
	List(ctx context.Context) ([]models.Video, error)
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]models.Video, error)
	Delete(ctx context.Context, id int) error
	// DeleteByStorageID is a no-op when no row matches.
	DeleteByStorageID(ctx context.Context, storageID string) error
	// IsReferenced reports whether any match details still lists storageID.
	IsReferenced(ctx context.Context, storageID string) (bool, error)
}

type postgresVideoRepository struct {
	db *sql.DB
}

func NewPostgresVideoRepository(db *sql.DB) VideoRepository {
	return &postgresVideoRepository{db: db}
}

const videoColumns = `id, title, video_url, external_storage_id, is_external_link, mime_type, match_id, created_at`

func scanVideo(row rowScanner) (*models.Video, error) {
	v := &models.Video{}
	err := row.Scan(&v.ID, &v.Title, &v.VideoURL, &v.ExternalStorageID, &v.IsExternalLink, &v.MimeType, &v.MatchID, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *postgresVideoRepository) Create(ctx context.Context, v *models.Video) error {
	query := `
		INSERT INTO videos (title, video_url, external_storage_id, is_external_link, mime_type, match_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		v.Title, v.VideoURL, v.ExternalStorageID, v.IsExternalLink, v.MimeType, v.MatchID,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if c, ok := pqViolation(err, pqUniqueViolation); ok && c == "videos_external_storage_id_key" {
			return ErrVideoStorageConflict
		}
		if _, ok := pqViolation(err, pqForeignKeyViolation); ok {
			// The match is gone; keep the ledger row without the link.
			v.MatchID = nil
			return r.Create(ctx, v)
		}
		return err
	}
	return nil
}

func (r *postgresVideoRepository) GetByID(ctx context.Context, id int) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	v, err := scanVideo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *postgresVideoRepository) GetByStorageID(ctx context.Context, storageID string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE external_storage_id = $1`

	v, err := scanVideo(r.db.QueryRowContext(ctx, query, storageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return v, nil
}

func (r *postgresVideoRepository) List(ctx context.Context) ([]models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos ORDER BY created_at DESC`
	return r.queryVideos(ctx, query)
}

func (r *postgresVideoRepository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE created_at < $1 ORDER BY created_at ASC`
	return r.queryVideos(ctx, query, cutoff)
}

func (r *postgresVideoRepository) queryVideos(ctx context.Context, query string, args ...interface{}) ([]models.Video, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	videos := make([]models.Video, 0)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *v)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return videos, nil
}

func (r *postgresVideoRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrVideoNotFound)
}

func (r *postgresVideoRepository) DeleteByStorageID(ctx context.Context, storageID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE external_storage_id = $1`, storageID)
	return err
}

func (r *postgresVideoRepository) IsReferenced(ctx context.Context, storageID string) (bool, error) {
	containment, err := storageContainment(storageID)
	if err != nil {
		return false, err
	}
	var referenced bool
	query := `SELECT EXISTS (SELECT 1 FROM match_details WHERE videos @> $1::jsonb)`
	if err := r.db.QueryRowContext(ctx, query, containment).Scan(&referenced); err != nil {
		return false, err
	}
	return referenced, nil
}

// storageContainment builds a jsonb containment filter matching a VideoRef by storage id.
func storageContainment(storageID string) (string, error) {
	b, err := json.Marshal([]map[string]string{{"externalStorageId": storageID}})
	if err != nil {
		return "", fmt.Errorf("failed to build containment filter: %w", err)
	}
	return string(b), nil
}
