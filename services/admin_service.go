package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Dosada05/inmatch/models"
	"github.com/Dosada05/inmatch/repositories"
)

const minPasswordLength = 8

var (
	ErrAdminNameRequired   = fmt.Errorf("%w: name is required", ErrValidationFailed)
	ErrAdminInvalidEmail   = fmt.Errorf("%w: a valid email is required", ErrValidationFailed)
	ErrPasswordTooShort    = fmt.Errorf("%w: password must be at least %d characters", ErrValidationFailed, minPasswordLength)
	ErrAdminInvalidRole    = fmt.Errorf("%w: role must be admin or superadmin", ErrValidationFailed)
	ErrCannotDeleteSelf    = fmt.Errorf("%w: admins cannot delete themselves", ErrForbiddenOperation)
	ErrLastSuperAdmin      = fmt.Errorf("%w: the last superadmin cannot be deleted", ErrForbiddenOperation)
	ErrAdminCreationFailed = errors.New("failed to create admin")
)

type AdminService interface {
	Login(ctx context.Context, input LoginInput) (*models.Admin, error)
	Register(ctx context.Context, actor Actor, input RegisterAdminInput) (*models.Admin, error)
	List(ctx context.Context, actor Actor) ([]models.Admin, error)
	GetByID(ctx context.Context, id int) (*models.Admin, error)
	Delete(ctx context.Context, actor Actor, id int) error
	// EnsureSuperAdmin creates the account if no admin with that email exists.
	EnsureSuperAdmin(ctx context.Context, input RegisterAdminInput) (*models.Admin, bool, error)
}

// Actor - аутентифицированный администратор, выполняющий операцию.
type Actor struct {
	ID   int
	Role models.AdminRole
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterAdminInput struct {
	Name     string           `json:"name"`
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Role     models.AdminRole `json:"role"`
}

type adminService struct {
	adminRepo repositories.AdminRepository
	logger    *slog.Logger
}

func NewAdminService(adminRepo repositories.AdminRepository, logger *slog.Logger) AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &adminService{adminRepo: adminRepo, logger: logger.With("service", "admin")}
}

func (s *adminService) Login(ctx context.Context, input LoginInput) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find admin by email: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	admin.PasswordHash = ""
	return admin, nil
}

func (s *adminService) Register(ctx context.Context, actor Actor, input RegisterAdminInput) (*models.Admin, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, ErrForbiddenOperation
	}
	if input.Role == "" {
		input.Role = models.RoleAdmin
	}
	admin, err := s.create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "admin registered",
		slog.Int("admin_id", admin.ID),
		slog.String("role", string(admin.Role)),
		slog.Int("by", actor.ID))
	return admin, nil
}

func (s *adminService) create(ctx context.Context, input RegisterAdminInput) (*models.Admin, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrAdminNameRequired
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, ErrAdminInvalidEmail
	}
	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if !input.Role.Valid() {
		return nil, ErrAdminInvalidRole
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	admin := &models.Admin{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         input.Role,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repositories.ErrAdminEmailConflict) {
			return nil, ErrAdminEmailConflict
		}
		return nil, fmt.Errorf("%w: %w", ErrAdminCreationFailed, err)
	}
	admin.PasswordHash = ""
	return admin, nil
}

func (s *adminService) List(ctx context.Context, actor Actor) ([]models.Admin, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, ErrForbiddenOperation
	}
	admins, err := s.adminRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	for i := range admins {
		admins[i].PasswordHash = ""
	}
	return admins, nil
}

func (s *adminService) GetByID(ctx context.Context, id int) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to get admin by id %d: %w", id, err)
	}
	admin.PasswordHash = ""
	return admin, nil
}

func (s *adminService) Delete(ctx context.Context, actor Actor, id int) error {
	if actor.Role != models.RoleSuperAdmin {
		return ErrForbiddenOperation
	}
	if actor.ID == id {
		return ErrCannotDeleteSelf
	}
	target, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == models.RoleSuperAdmin {
		n, err := s.adminRepo.CountByRole(ctx, models.RoleSuperAdmin)
		if err != nil {
			return fmt.Errorf("failed to count superadmins: %w", err)
		}
		if n <= 1 {
			return ErrLastSuperAdmin
		}
	}
	if err := s.adminRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			return ErrAdminNotFound
		}
		return fmt.Errorf("failed to delete admin %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "admin deleted", slog.Int("admin_id", id), slog.Int("by", actor.ID))
	return nil
}

func (s *adminService) EnsureSuperAdmin(ctx context.Context, input RegisterAdminInput) (*models.Admin, bool, error) {
	existing, err := s.adminRepo.GetByEmail(ctx, strings.TrimSpace(input.Email))
	if err == nil {
		existing.PasswordHash = ""
		return existing, false, nil
	}
	if !errors.Is(err, repositories.ErrAdminNotFound) {
		return nil, false, fmt.Errorf("failed to look up admin: %w", err)
	}

	input.Role = models.RoleSuperAdmin
	admin, err := s.create(ctx, input)
	if err != nil {
		return nil, false, err
	}
	s.logger.InfoContext(ctx, "superadmin created", slog.Int("admin_id", admin.ID))
	return admin, true, nil
}
