package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/inmatch/models"
	"github.com/Dosada05/inmatch/repositories"
)

var (
	ErrLeagueNameRequired   = fmt.Errorf("%w: league name is required", ErrValidationFailed)
	ErrLeagueLogoRequired   = fmt.Errorf("%w: league logo is required", ErrValidationFailed)
	ErrLeagueCreationFailed = errors.New("failed to create league")
	ErrLeagueUpdateFailed   = errors.New("failed to update league")
	ErrLeagueDeleteFailed   = errors.New("failed to delete league")
)

type LeagueService interface {
	CreateLeague(ctx context.Context, input LeagueInput) (*models.League, error)
	GetLeagueByID(ctx context.Context, id int) (*models.League, error)
	ListLeagues(ctx context.Context) ([]models.League, error)
	UpdateLeague(ctx context.Context, id int, input UpdateLeagueInput) (*models.League, error)
	DeleteLeague(ctx context.Context, id int) error
}

type LeagueInput struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type UpdateLeagueInput struct {
	Name *string `json:"name"`
	Logo *string `json:"logo"`
}

type leagueService struct {
	leagueRepo repositories.LeagueRepository
}

func NewLeagueService(leagueRepo repositories.LeagueRepository) LeagueService {
	return &leagueService{leagueRepo: leagueRepo}
}

func (s *leagueService) CreateLeague(ctx context.Context, input LeagueInput) (*models.League, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrLeagueNameRequired
	}
	logo := strings.TrimSpace(input.Logo)
	if logo == "" {
		return nil, ErrLeagueLogoRequired
	}

	league := &models.League{Name: name, LogoURL: logo}
	if err := s.leagueRepo.Create(ctx, league); err != nil {
		if errors.Is(err, repositories.ErrLeagueNameConflict) {
			return nil, ErrLeagueNameConflict
		}
		return nil, fmt.Errorf("%w: %w", ErrLeagueCreationFailed, err)
	}
	return league, nil
}

func (s *leagueService) GetLeagueByID(ctx context.Context, id int) (*models.League, error) {
	league, err := s.leagueRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("failed to get league by id %d: %w", id, err)
	}
	return league, nil
}

func (s *leagueService) ListLeagues(ctx context.Context) ([]models.League, error) {
	leagues, err := s.leagueRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list leagues: %w", err)
	}
	if leagues == nil {
		return []models.League{}, nil
	}
	return leagues, nil
}

func (s *leagueService) UpdateLeague(ctx context.Context, id int, input UpdateLeagueInput) (*models.League, error) {
	league, err := s.GetLeagueByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrLeagueNameRequired
		}
		league.Name = name
	}
	if input.Logo != nil {
		logo := strings.TrimSpace(*input.Logo)
		if logo == "" {
			return nil, ErrLeagueLogoRequired
		}
		league.LogoURL = logo
	}

	if err := s.leagueRepo.Update(ctx, league); err != nil {
		switch {
		case errors.Is(err, repositories.ErrLeagueNotFound):
			return nil, ErrLeagueNotFound
		case errors.Is(err, repositories.ErrLeagueNameConflict):
			return nil, ErrLeagueNameConflict
		default:
			return nil, fmt.Errorf("%w (id: %d): %w", ErrLeagueUpdateFailed, id, err)
		}
	}
	return league, nil
}

func (s *leagueService) DeleteLeague(ctx context.Context, id int) error {
	err := s.leagueRepo.Delete(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrLeagueNotFound):
			return ErrLeagueNotFound
		case errors.Is(err, repositories.ErrLeagueInUse):
			return ErrLeagueInUse
		default:
			return fmt.Errorf("%w (id: %d): %w", ErrLeagueDeleteFailed, id, err)
		}
	}
	return nil
}
