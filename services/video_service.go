package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/Dosada05/inmatch/metrics"
	"github.com/Dosada05/inmatch/models"
	"github.com/Dosada05/inmatch/repositories"
)

var (
	ErrVideoFileRequired    = fmt.Errorf("%w: no video file uploaded", ErrValidationFailed)
	ErrVideoUnsupportedType = fmt.Errorf("%w: only video files are allowed", ErrValidationFailed)

	ErrVideoDeleteFailed = errors.New("failed to delete video")
)

var allowedVideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".ogg":  true,
}

type VideoService interface {
	Upload(ctx context.Context, input UploadVideoInput) (*models.Video, error)
	List(ctx context.Context) ([]models.Video, error)
	Get(ctx context.Context, id int) (*models.Video, error)
	Delete(ctx context.Context, id int) error
	// SweepOrphans removes ledger rows (and objects) nobody references any more.
	SweepOrphans(ctx context.Context) error
}

type UploadVideoInput struct {
	Title   string
	MatchID *int
	Payload Payload
}

type videoService struct {
	videoRepo   repositories.VideoRepository
	detailsRepo repositories.MatchDetailsRepository
	matchRepo   repositories.MatchRepository
	media       *MediaReconciler
	orphanAge   time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

type VideoServiceConfig struct {
	OrphanAge time.Duration
	Now       func() time.Time
}

func NewVideoService(
	videoRepo repositories.VideoRepository,
	detailsRepo repositories.MatchDetailsRepository,
	matchRepo repositories.MatchRepository,
	media *MediaReconciler,
	cfg VideoServiceConfig,
	logger *slog.Logger,
) VideoService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &videoService{
		videoRepo:   videoRepo,
		detailsRepo: detailsRepo,
		matchRepo:   matchRepo,
		media:       media,
		orphanAge:   cfg.OrphanAge,
		now:         cfg.Now,
		logger:      logger.With("service", "video"),
	}
}

// IsVideoFile проверяет MIME-тип или расширение файла.
func IsVideoFile(filename, contentType string) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "video/") {
		return true
	}
	return allowedVideoExtensions[strings.ToLower(filepath.Ext(filename))]
}

func (s *videoService) Upload(ctx context.Context, input UploadVideoInput) (*models.Video, error) {
	if input.Payload == nil {
		return nil, ErrVideoFileRequired
	}
	if !IsVideoFile(input.Payload.Filename(), input.Payload.ContentType()) {
		_ = input.Payload.Discard()
		return nil, ErrVideoUnsupportedType
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(input.Payload.Filename()), filepath.Ext(input.Payload.Filename()))
	}
	if title == "" || title == "." {
		title = "Untitled video"
	}

	if input.MatchID != nil {
		if _, err := s.matchRepo.GetByID(ctx, *input.MatchID); err != nil {
			_ = input.Payload.Discard()
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return nil, ErrMatchNotFound
			}
			return nil, fmt.Errorf("failed to get match by id %d: %w", *input.MatchID, err)
		}
	}

	video, err := s.media.ledger.upload(ctx, input.MatchID, title, input.Payload)
	if err != nil {
		return nil, err
	}
	return video, nil
}

func (s *videoService) List(ctx context.Context) ([]models.Video, error) {
	videos, err := s.videoRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	if videos == nil {
		return []models.Video{}, nil
	}
	return videos, nil
}

func (s *videoService) Get(ctx context.Context, id int) (*models.Video, error) {
	video, err := s.videoRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video by id %d: %w", id, err)
	}
	return video, nil
}

func (s *videoService) Delete(ctx context.Context, id int) error {
	video, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if sid := video.StorageID(); sid != "" {
		if err := s.stripReferences(ctx, sid); err != nil {
			return fmt.Errorf("%w (id: %d): %w", ErrVideoDeleteFailed, id, err)
		}
		s.media.ledger.deleteObject(ctx, sid)
	}

	if err := s.videoRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrVideoNotFound) {
			return ErrVideoNotFound
		}
		return fmt.Errorf("%w (id: %d): %w", ErrVideoDeleteFailed, id, err)
	}
	s.logger.InfoContext(ctx, "video deleted", slog.Int("video_id", id), slog.String("storage_id", video.StorageID()))
	return nil
}

// stripReferences removes the stored video from every match details list.
func (s *videoService) stripReferences(ctx context.Context, storageID string) error {
	list, err := s.detailsRepo.ListReferencingStorageID(ctx, storageID)
	if err != nil {
		return fmt.Errorf("failed to find details referencing %s: %w", storageID, err)
	}
	for i := range list {
		details := &list[i]
		kept := make(models.VideoList, 0, len(details.Videos))
		for _, ref := range details.Videos {
			if ref.StorageID() != storageID {
				kept = append(kept, ref)
			}
		}
		details.Videos = kept
		if err := s.detailsRepo.Update(ctx, details); err != nil && !errors.Is(err, repositories.ErrMatchDetailsNotFound) {
			return fmt.Errorf("failed to update details of match %d: %w", details.MatchID, err)
		}
	}
	return nil
}

func (s *videoService) SweepOrphans(ctx context.Context) error {
	cutoff := s.now().Add(-s.orphanAge)
	videos, err := s.videoRepo.ListOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list videos older than %s: %w", cutoff.Format(time.RFC3339), err)
	}

	removed := 0
	for _, v := range videos {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sid := v.StorageID()
		if v.IsExternalLink || sid == "" {
			continue
		}
		if ok := s.sweepOne(ctx, v, sid); ok {
			removed++
		}
	}
	s.logger.InfoContext(ctx, "video sweep finished",
		slog.Int("checked", len(videos)),
		slog.Int("removed", removed))
	return nil
}

func (s *videoService) sweepOne(ctx context.Context, v models.Video, sid string) bool {
	log := s.logger.With(slog.Int("video_id", v.ID), slog.String("storage_id", sid))

	exists, err := s.media.ledger.store.Exists(ctx, sid)
	if err != nil {
		log.WarnContext(ctx, "sweep: failed to check object", slog.Any("error", err))
		return false
	}
	if !exists {
		if err := s.stripReferences(ctx, sid); err != nil {
			log.WarnContext(ctx, "sweep: failed to strip references to missing object", slog.Any("error", err))
			return false
		}
		if err := s.videoRepo.Delete(ctx, v.ID); err != nil && !errors.Is(err, repositories.ErrVideoNotFound) {
			log.WarnContext(ctx, "sweep: failed to delete row of missing object", slog.Any("error", err))
			return false
		}
		metrics.OrphanVideosRemoved.WithLabelValues("missing_object").Inc()
		log.InfoContext(ctx, "sweep: removed video whose object is missing")
		return true
	}

	referenced, err := s.videoRepo.IsReferenced(ctx, sid)
	if err != nil {
		log.WarnContext(ctx, "sweep: failed to check references", slog.Any("error", err))
		return false
	}
	if referenced {
		return false
	}
	if err := s.media.ledger.purge(ctx, sid); err != nil {
		log.WarnContext(ctx, "sweep: failed to purge unreferenced video", slog.Any("error", err))
		return false
	}
	metrics.OrphanVideosRemoved.WithLabelValues("unreferenced").Inc()
	log.InfoContext(ctx, "sweep: purged unreferenced video")
	return true
}
