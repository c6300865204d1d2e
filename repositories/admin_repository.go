package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Dosada05/inmatch/models"
)

var (
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAdminEmailConflict = errors.New("admin email conflict")
)

type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByID(ctx context.Context, id int) (*models.Admin, error)
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	List(ctx context.Context) ([]models.Admin, error)
	Delete(ctx context.Context, id int) error
	CountByRole(ctx context.Context, role models.AdminRole) (int, error)
}

type postgresAdminRepository struct {
	db *sql.DB
}

func NewPostgresAdminRepository(db *sql.DB) AdminRepository {
	return &postgresAdminRepository{db: db}
}

func (r *postgresAdminRepository) Create(ctx context.Context, a *models.Admin) error {
	query := `
		INSERT INTO admins (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, a.Name, a.Email, a.PasswordHash, a.Role).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if c, ok := pqViolation(err, pqUniqueViolation); ok && c == "admins_email_key" {
			return ErrAdminEmailConflict
		}
		return err
	}
	return nil
}

func (r *postgresAdminRepository) GetByID(ctx context.Context, id int) (*models.Admin, error) {
	return r.getOne(ctx, `SELECT id, name, email, password_hash, role, created_at FROM admins WHERE id = $1`, id)
}

func (r *postgresAdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return r.getOne(ctx, `SELECT id, name, email, password_hash, role, created_at FROM admins WHERE lower(email) = lower($1)`, email)
}

func (r *postgresAdminRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.Admin, error) {
	var a models.Admin
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *postgresAdminRepository) List(ctx context.Context) ([]models.Admin, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, email, role, created_at FROM admins ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := make([]models.Admin, 0)
	for rows.Next() {
		var a models.Admin
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Role, &a.CreatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return admins, nil
}

func (r *postgresAdminRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM admins WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrAdminNotFound)
}

func (r *postgresAdminRepository) CountByRole(ctx context.Context, role models.AdminRole) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM admins WHERE role = $1`, role).Scan(&n)
	return n, err
}
