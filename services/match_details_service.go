package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/Dosada05/inmatch/models"
	"github.com/Dosada05/inmatch/realtime"
	"github.com/Dosada05/inmatch/repositories"
)

var (
	ErrInvalidStatsFormat = fmt.Errorf("%w: stats must be formatted as \"A - B\"", ErrValidationFailed)
	ErrInvalidGoal        = fmt.Errorf("%w: every goal needs a player and a minute", ErrValidationFailed)
	ErrInvalidRemovalMode = fmt.Errorf("%w: mode must be detach or purge", ErrValidationFailed)

	ErrMatchDetailsCreationFailed = errors.New("failed to create match details")
	ErrMatchDetailsUpdateFailed   = errors.New("failed to update match details")
)

var statPattern = regexp.MustCompile(`^\d+\s*-\s*\d+$`)

// RemovalMode: detach убирает видео только из списка, purge удаляет и объект.
type RemovalMode string

const (
	RemovalDetach RemovalMode = "detach"
	RemovalPurge  RemovalMode = "purge"
)

type MatchDetailsService interface {
	Get(ctx context.Context, matchID int) (*MatchDetailsView, error)
	Create(ctx context.Context, matchID int, input MatchDetailsInput) (*models.MatchDetails, error)
	Update(ctx context.Context, matchID int, input MatchDetailsInput) (*models.MatchDetails, error)
	RemoveVideo(ctx context.Context, matchID int, videoRefID string, mode RemovalMode) (*models.MatchDetails, error)
}

// MatchDetailsInput: nil stats or goals are left unchanged (or defaulted on
// create). Videos replace the stored list only when ReplaceVideos is set.
type MatchDetailsInput struct {
	Stats         *models.MatchStats
	GoalsDetails  *models.GoalsDetails
	Videos        []VideoEntry
	ReplaceVideos bool
}

type MatchDetailsView struct {
	Match   *models.Match        `json:"match"`
	Details *models.MatchDetails `json:"details"`
}

type MatchDetailsUpdateEvent struct {
	MatchID int                  `json:"matchId"`
	Details *models.MatchDetails `json:"details"`
}

type matchDetailsService struct {
	detailsRepo repositories.MatchDetailsRepository
	matchRepo   repositories.MatchRepository
	media       *MediaReconciler
	publisher   EventPublisher
	logger      *slog.Logger
}

func NewMatchDetailsService(
	detailsRepo repositories.MatchDetailsRepository,
	matchRepo repositories.MatchRepository,
	media *MediaReconciler,
	publisher EventPublisher,
	logger *slog.Logger,
) MatchDetailsService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &matchDetailsService{
		detailsRepo: detailsRepo,
		matchRepo:   matchRepo,
		media:       media,
		publisher:   publisher,
		logger:      logger.With("service", "match_details"),
	}
}

func (s *matchDetailsService) Get(ctx context.Context, matchID int) (*MatchDetailsView, error) {
	match, err := s.requireMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	details, err := s.getDetails(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return &MatchDetailsView{Match: match, Details: details}, nil
}

func (s *matchDetailsService) Create(ctx context.Context, matchID int, input MatchDetailsInput) (*models.MatchDetails, error) {
	if _, err := s.requireMatch(ctx, matchID); err != nil {
		discardPending(input.Videos)
		return nil, err
	}
	if _, err := s.detailsRepo.GetByMatchID(ctx, matchID); err == nil {
		discardPending(input.Videos)
		return nil, ErrMatchDetailsExist
	} else if !errors.Is(err, repositories.ErrMatchDetailsNotFound) {
		discardPending(input.Videos)
		return nil, fmt.Errorf("%w: %w", ErrMatchDetailsCreationFailed, err)
	}

	details := &models.MatchDetails{
		MatchID:      matchID,
		Videos:       models.VideoList{},
		Stats:        models.DefaultMatchStats(),
		GoalsDetails: models.GoalsDetails{Team1: []models.Goal{}, Team2: []models.Goal{}},
	}
	if err := applyDetailsFields(details, input); err != nil {
		discardPending(input.Videos)
		return nil, err
	}

	persist := func(videos []models.VideoRef) error {
		details.Videos = videos
		if err := s.detailsRepo.Create(ctx, details); err != nil {
			switch {
			case errors.Is(err, repositories.ErrMatchDetailsExist):
				return ErrMatchDetailsExist
			case errors.Is(err, repositories.ErrMatchDetailsInvalidMatch):
				return ErrMatchNotFound
			default:
				return fmt.Errorf("%w: %w", ErrMatchDetailsCreationFailed, err)
			}
		}
		return nil
	}

	if len(input.Videos) > 0 {
		if _, err := s.media.Reconcile(ctx, matchID, nil, input.Videos, persist); err != nil {
			return nil, err
		}
	} else if err := persist(models.VideoList{}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "match details created",
		slog.Int("match_id", matchID),
		slog.Int("videos", len(details.Videos)))
	s.publishUpdate(details)
	return details, nil
}

func (s *matchDetailsService) Update(ctx context.Context, matchID int, input MatchDetailsInput) (*models.MatchDetails, error) {
	details, err := s.getDetails(ctx, matchID)
	if err != nil {
		discardPending(input.Videos)
		return nil, err
	}
	if err := applyDetailsFields(details, input); err != nil {
		discardPending(input.Videos)
		return nil, err
	}

	persist := func(videos []models.VideoRef) error {
		details.Videos = videos
		if err := s.detailsRepo.Update(ctx, details); err != nil {
			if errors.Is(err, repositories.ErrMatchDetailsNotFound) {
				return ErrMatchDetailsNotFound
			}
			return fmt.Errorf("%w: %w", ErrMatchDetailsUpdateFailed, err)
		}
		return nil
	}

	if input.ReplaceVideos {
		existing := append([]models.VideoRef(nil), details.Videos...)
		if _, err := s.media.Reconcile(ctx, matchID, existing, input.Videos, persist); err != nil {
			return nil, err
		}
	} else if err := persist(details.Videos); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "match details updated",
		slog.Int("match_id", matchID),
		slog.Bool("videos_replaced", input.ReplaceVideos))
	s.publishUpdate(details)
	return details, nil
}

func (s *matchDetailsService) RemoveVideo(ctx context.Context, matchID int, videoRefID string, mode RemovalMode) (*models.MatchDetails, error) {
	if mode != RemovalDetach && mode != RemovalPurge {
		return nil, ErrInvalidRemovalMode
	}
	details, err := s.getDetails(ctx, matchID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, ref := range details.Videos {
		if ref.ID == videoRefID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrVideoRefNotFound
	}
	removed := details.Videos[idx]
	details.Videos = append(details.Videos[:idx:idx], details.Videos[idx+1:]...)

	if err := s.detailsRepo.Update(ctx, details); err != nil {
		if errors.Is(err, repositories.ErrMatchDetailsNotFound) {
			return nil, ErrMatchDetailsNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrMatchDetailsUpdateFailed, err)
	}

	if sid := removed.StorageID(); sid != "" {
		switch mode {
		case RemovalPurge:
			if err := s.media.Purge(ctx, sid); err != nil {
				s.logger.ErrorContext(ctx, "failed to purge removed video", slog.String("storage_id", sid), slog.Any("error", err))
			}
		case RemovalDetach:
			if err := s.media.Track(ctx, matchID, removed); err != nil {
				s.logger.ErrorContext(ctx, "failed to track detached video", slog.String("storage_id", sid), slog.Any("error", err))
			}
		}
	}

	s.logger.InfoContext(ctx, "video removed from match",
		slog.Int("match_id", matchID),
		slog.String("video_id", videoRefID),
		slog.String("mode", string(mode)))
	s.publishUpdate(details)
	return details, nil
}

func (s *matchDetailsService) requireMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match by id %d: %w", matchID, err)
	}
	return match, nil
}

func (s *matchDetailsService) getDetails(ctx context.Context, matchID int) (*models.MatchDetails, error) {
	details, err := s.detailsRepo.GetByMatchID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchDetailsNotFound) {
			return nil, ErrMatchDetailsNotFound
		}
		return nil, fmt.Errorf("failed to get details for match %d: %w", matchID, err)
	}
	return details, nil
}

func (s *matchDetailsService) publishUpdate(details *models.MatchDetails) {
	s.publisher.PublishToMatch(details.MatchID, realtime.EventMatchUpdate, MatchDetailsUpdateEvent{
		MatchID: details.MatchID,
		Details: details,
	})
}

func applyDetailsFields(details *models.MatchDetails, input MatchDetailsInput) error {
	if input.Stats != nil {
		stats, err := normalizeStats(*input.Stats)
		if err != nil {
			return err
		}
		details.Stats = stats
	}
	if input.GoalsDetails != nil {
		goals, err := normalizeGoals(*input.GoalsDetails)
		if err != nil {
			return err
		}
		details.GoalsDetails = goals
	}
	return nil
}

// normalizeStats fills empty values with "0 - 0" and validates the rest.
func normalizeStats(in models.MatchStats) (models.MatchStats, error) {
	fields := []*string{&in.Possession, &in.Shots, &in.Fouls, &in.Corners}
	for _, f := range fields {
		v := strings.TrimSpace(*f)
		if v == "" {
			v = "0 - 0"
		}
		if !statPattern.MatchString(v) {
			return models.MatchStats{}, ErrInvalidStatsFormat
		}
		*f = v
	}
	return in, nil
}

func normalizeGoals(in models.GoalsDetails) (models.GoalsDetails, error) {
	out := models.GoalsDetails{Team1: []models.Goal{}, Team2: []models.Goal{}}
	for _, side := range []struct {
		src []models.Goal
		dst *[]models.Goal
	}{{in.Team1, &out.Team1}, {in.Team2, &out.Team2}} {
		for _, g := range side.src {
			g.Player = strings.TrimSpace(g.Player)
			g.Minute = strings.TrimSpace(g.Minute)
			if g.Player == "" || g.Minute == "" {
				return models.GoalsDetails{}, ErrInvalidGoal
			}
			*side.dst = append(*side.dst, g)
		}
	}
	return out, nil
}
