package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/inmatch/metrics"
	"github.com/Dosada05/inmatch/models"
	"github.com/Dosada05/inmatch/repositories"
	"github.com/Dosada05/inmatch/storage"
)

// Payload - загруженный клиентом файл, ещё не отправленный в хранилище.
type Payload interface {
	Open() (io.ReadCloser, error)
	Filename() string
	ContentType() string
	Size() int64
	// Discard releases the local copy. It is safe to call more than once.
	Discard() error
}

// VideoEntry is one element of the desired video list: PersistedUpload,
// ExternalLink or PendingUpload.
type VideoEntry interface {
	entryTitle() string
}

// PersistedUpload references a file already in object storage. Only Title may
// differ from the stored entry.
type PersistedUpload struct {
	ID        string
	Title     string
	StorageID string
}

type ExternalLink struct {
	ID    string
	Title string
	URL   string
}

// PendingUpload is a new file to upload during reconciliation.
type PendingUpload struct {
	Title   string
	Payload Payload
}

func (e PersistedUpload) entryTitle() string { return e.Title }
func (e ExternalLink) entryTitle() string    { return e.Title }
func (e PendingUpload) entryTitle() string   { return e.Title }

type UploadFailure struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Message  string `json:"error"`
}

type UploadedEntry struct {
	Position int             `json:"position"`
	Video    models.VideoRef `json:"video"`
}

// ReconcileError is returned when at least one upload failed. The stored list is
// left untouched; Uploaded entries are in storage and tracked in the ledger, so
// the client can resubmit them as persisted uploads.
type ReconcileError struct {
	Failed   []UploadFailure
	Uploaded []UploadedEntry
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("%d of %d video uploads failed", len(e.Failed), len(e.Failed)+len(e.Uploaded))
}

func (e *ReconcileError) Unwrap() error {
	return ErrStorageUploadFailed
}

type MediaConfig struct {
	UploadTimeout time.Duration
	Concurrency   int
}

// mediaLedger keeps object storage and the videos table in step: every object
// this service uploads gets a videos row.
type mediaLedger struct {
	store         storage.ObjectStore
	videos        repositories.VideoRepository
	uploadTimeout time.Duration
	logger        *slog.Logger
}

func objectKey(matchID *int, p Payload) string {
	ext := strings.ToLower(filepath.Ext(p.Filename()))
	if ext == "" {
		if exts, err := mime.ExtensionsByType(p.ContentType()); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	if matchID != nil {
		return fmt.Sprintf("match-videos/%d/%s%s", *matchID, uuid.NewString(), ext)
	}
	return fmt.Sprintf("videos/%s%s", uuid.NewString(), ext)
}

// upload sends the payload to object storage and records its ledger row. The
// payload is discarded whatever the outcome.
func (l *mediaLedger) upload(ctx context.Context, matchID *int, title string, p Payload) (*models.Video, error) {
	defer func() {
		if err := p.Discard(); err != nil {
			l.logger.WarnContext(ctx, "failed to discard upload payload", slog.Any("error", err))
		}
	}()

	key := objectKey(matchID, p)
	body, err := p.Open()
	if err != nil {
		metrics.VideoUploads.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("%w: failed to open payload: %w", ErrStorageUploadFailed, err)
	}
	defer body.Close()

	uploadCtx, cancel := context.WithTimeout(ctx, l.uploadTimeout)
	defer cancel()

	start := time.Now()
	result, err := l.store.Upload(uploadCtx, storage.UploadInput{
		Key:         key,
		ContentType: p.ContentType(),
		Body:        body,
		Size:        p.Size(),
	})
	metrics.UploadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VideoUploads.WithLabelValues(metrics.ResultFailure).Inc()
		l.logger.ErrorContext(ctx, "video upload failed", slog.String("key", key), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrStorageUploadFailed, err)
	}
	metrics.VideoUploads.WithLabelValues(metrics.ResultSuccess).Inc()

	storageID := result.Key
	if storageID == "" {
		storageID = key
	}
	videoURL := result.Location
	if videoURL == "" {
		videoURL = l.store.GetPublicURL(storageID)
	}
	var mimeType *string
	if ct := p.ContentType(); ct != "" {
		mimeType = &ct
	}

	video := &models.Video{
		Title:             title,
		VideoURL:          videoURL,
		ExternalStorageID: &storageID,
		IsExternalLink:    false,
		MimeType:          mimeType,
		MatchID:           matchID,
	}
	if err := l.videos.Create(ctx, video); err != nil {
		// Объект без записи в реестре потерян для очистки, удаляем сразу.
		l.deleteObject(ctx, storageID)
		return nil, fmt.Errorf("%w: failed to record uploaded video: %w", ErrStorageUploadFailed, err)
	}

	l.logger.InfoContext(ctx, "video uploaded",
		slog.String("storage_id", storageID),
		slog.Int64("size", p.Size()),
		slog.Duration("took", time.Since(start)))
	return video, nil
}

// deleteObject is best effort; failures are logged and counted.
func (l *mediaLedger) deleteObject(ctx context.Context, key string) bool {
	if err := l.store.Delete(ctx, key); err != nil {
		metrics.StorageDeletes.WithLabelValues(metrics.ResultFailure).Inc()
		l.logger.ErrorContext(ctx, "failed to delete object from storage", slog.String("storage_id", key), slog.Any("error", err))
		return false
	}
	metrics.StorageDeletes.WithLabelValues(metrics.ResultSuccess).Inc()
	return true
}

// purge deletes the remote object and its ledger row. A failed object delete
// is logged and the row is removed anyway.
func (l *mediaLedger) purge(ctx context.Context, key string) error {
	l.deleteObject(ctx, key)
	if err := l.videos.DeleteByStorageID(ctx, key); err != nil {
		return fmt.Errorf("failed to delete ledger row for %s: %w", key, err)
	}
	return nil
}

// MediaReconciler turns a desired video list into the persisted one.
type MediaReconciler struct {
	ledger      *mediaLedger
	concurrency int
	logger      *slog.Logger
}

func NewMediaReconciler(store storage.ObjectStore, videos repositories.VideoRepository, cfg MediaConfig, logger *slog.Logger) *MediaReconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = time.Minute
	}
	logger = logger.With("service", "media")
	return &MediaReconciler{
		ledger: &mediaLedger{
			store:         store,
			videos:        videos,
			uploadTimeout: cfg.UploadTimeout,
			logger:        logger,
		},
		concurrency: cfg.Concurrency,
		logger:      logger,
	}
}

// Reconcile uploads pending entries, calls persist with the resulting list and
// then purges stored objects no longer referenced. If any upload fails, persist
// is not called, nothing is deleted and a *ReconcileError is returned.
func (r *MediaReconciler) Reconcile(
	ctx context.Context,
	matchID int,
	existing []models.VideoRef,
	desired []VideoEntry,
	persist func([]models.VideoRef) error,
) ([]models.VideoRef, error) {
	prior := make(map[string]models.VideoRef, len(existing))
	for _, ref := range existing {
		if sid := ref.StorageID(); sid != "" {
			prior[sid] = ref
		}
	}

	result, pending, err := r.resolve(ctx, prior, desired)
	if err != nil {
		discardPending(desired)
		return nil, err
	}

	if len(pending) > 0 {
		if rerr := r.uploadPending(ctx, matchID, desired, pending, result); rerr != nil {
			return nil, rerr
		}
	}

	if persist != nil {
		if err := persist(result); err != nil {
			return nil, err
		}
	}

	kept := make(map[string]bool, len(result))
	for _, ref := range result {
		if sid := ref.StorageID(); sid != "" {
			kept[sid] = true
		}
	}
	for _, ref := range existing {
		sid := ref.StorageID()
		if sid == "" || kept[sid] {
			continue
		}
		r.purgeOrphan(ctx, matchID, sid)
	}
	return result, nil
}

// resolve validates desired entries and builds the result list in order. Slots
// for pending uploads are filled later; their positions are returned.
func (r *MediaReconciler) resolve(ctx context.Context, prior map[string]models.VideoRef, desired []VideoEntry) ([]models.VideoRef, []int, error) {
	result := make([]models.VideoRef, len(desired))
	var pending []int
	seen := make(map[string]bool)

	for i, entry := range desired {
		title := strings.TrimSpace(entry.entryTitle())
		if title == "" {
			return nil, nil, fmt.Errorf("%w: videos[%d]: title is required", ErrValidationFailed, i)
		}

		switch e := entry.(type) {
		case PersistedUpload:
			sid := strings.TrimSpace(e.StorageID)
			if sid == "" {
				return nil, nil, fmt.Errorf("%w: videos[%d]: uploaded video needs externalStorageId", ErrValidationFailed, i)
			}
			if seen[sid] {
				return nil, nil, fmt.Errorf("%w: videos[%d]: storage id %s listed twice", ErrValidationFailed, i, sid)
			}
			seen[sid] = true

			// Клиент может менять только title: id и URL берутся из сохранённых данных.
			ref := models.VideoRef{ID: e.ID, Title: title, ExternalStorageID: &sid}
			if old, ok := prior[sid]; ok {
				if old.ID != "" {
					ref.ID = old.ID
				}
				ref.VideoURL = old.VideoURL
			} else {
				// Не из текущего списка: объект должен быть в реестре.
				video, err := r.ledger.videos.GetByStorageID(ctx, sid)
				if err != nil {
					if errors.Is(err, repositories.ErrVideoNotFound) {
						return nil, nil, fmt.Errorf("%w: videos[%d]: unknown storage id %s", ErrValidationFailed, i, sid)
					}
					return nil, nil, fmt.Errorf("failed to look up video %s: %w", sid, err)
				}
				ref.VideoURL = video.VideoURL
			}
			if ref.VideoURL == "" {
				ref.VideoURL = r.ledger.store.GetPublicURL(sid)
			}
			if ref.ID == "" {
				ref.ID = uuid.NewString()
			}
			result[i] = ref

		case ExternalLink:
			link := strings.TrimSpace(e.URL)
			if link == "" {
				return nil, nil, fmt.Errorf("%w: videos[%d]: external link needs videoUrl", ErrValidationFailed, i)
			}
			id := e.ID
			if id == "" {
				id = uuid.NewString()
			}
			result[i] = models.VideoRef{ID: id, Title: title, VideoURL: link, IsExternalLink: true}

		case PendingUpload:
			if e.Payload == nil {
				return nil, nil, fmt.Errorf("%w: videos[%d]: file is missing", ErrValidationFailed, i)
			}
			pending = append(pending, i)

		default:
			return nil, nil, fmt.Errorf("%w: videos[%d]: unsupported entry", ErrValidationFailed, i)
		}
	}
	return result, pending, nil
}

func (r *MediaReconciler) uploadPending(ctx context.Context, matchID int, desired []VideoEntry, positions []int, result []models.VideoRef) *ReconcileError {
	var (
		mu      sync.Mutex
		failed  []UploadFailure
		matchFK = matchID
	)

	// Ошибка одной загрузки не отменяет остальные.
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, pos := range positions {
		entry := desired[pos].(PendingUpload)
		title := strings.TrimSpace(entry.Title)
		g.Go(func() error {
			video, err := r.ledger.upload(ctx, &matchFK, title, entry.Payload)
			if err != nil {
				mu.Lock()
				failed = append(failed, UploadFailure{Position: pos, Title: title, Message: err.Error()})
				mu.Unlock()
				return nil
			}
			result[pos] = models.VideoRef{
				ID:                uuid.NewString(),
				Title:             title,
				VideoURL:          video.VideoURL,
				ExternalStorageID: video.ExternalStorageID,
				IsExternalLink:    false,
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		return nil
	}

	rerr := &ReconcileError{Failed: failed}
	sort.Slice(rerr.Failed, func(i, j int) bool { return rerr.Failed[i].Position < rerr.Failed[j].Position })
	for _, pos := range positions {
		if result[pos].StorageID() != "" {
			rerr.Uploaded = append(rerr.Uploaded, UploadedEntry{Position: pos, Video: result[pos]})
		}
	}
	r.logger.WarnContext(ctx, "video reconciliation aborted after upload failures",
		slog.Int("match_id", matchID),
		slog.Int("failed", len(rerr.Failed)),
		slog.Int("uploaded", len(rerr.Uploaded)))
	return rerr
}

func (r *MediaReconciler) purgeOrphan(ctx context.Context, matchID int, sid string) {
	// Если проверка ссылок не удалась, объект всё равно удаляется: ссылки других
	// матчей на пропавший объект снимет очистка (missing_object).
	if referenced, err := r.ledger.videos.IsReferenced(ctx, sid); err != nil {
		r.logger.WarnContext(ctx, "failed to check video references, purging anyway",
			slog.String("storage_id", sid), slog.Any("error", err))
	} else if referenced {
		r.logger.InfoContext(ctx, "orphaned video is still used by another match, keeping object", slog.String("storage_id", sid))
		return
	}
	if err := r.ledger.purge(ctx, sid); err != nil {
		r.logger.ErrorContext(ctx, "failed to purge orphaned video",
			slog.Int("match_id", matchID), slog.String("storage_id", sid), slog.Any("error", err))
		return
	}
	r.logger.InfoContext(ctx, "orphaned video purged", slog.Int("match_id", matchID), slog.String("storage_id", sid))
}

// Purge deletes a stored video and its ledger row.
func (r *MediaReconciler) Purge(ctx context.Context, storageID string) error {
	return r.ledger.purge(ctx, storageID)
}

// Track makes sure a detached upload still has a ledger row, so the orphan
// sweep can find it later.
func (r *MediaReconciler) Track(ctx context.Context, matchID int, ref models.VideoRef) error {
	sid := ref.StorageID()
	if sid == "" {
		return nil
	}
	_, err := r.ledger.videos.GetByStorageID(ctx, sid)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrVideoNotFound) {
		return fmt.Errorf("failed to look up video %s: %w", sid, err)
	}
	video := &models.Video{
		Title:             ref.Title,
		VideoURL:          ref.VideoURL,
		ExternalStorageID: &sid,
		MatchID:           &matchID,
	}
	if err := r.ledger.videos.Create(ctx, video); err != nil && !errors.Is(err, repositories.ErrVideoStorageConflict) {
		return fmt.Errorf("failed to track detached video %s: %w", sid, err)
	}
	return nil
}

func discardPending(entries []VideoEntry) {
	for _, e := range entries {
		if p, ok := e.(PendingUpload); ok && p.Payload != nil {
			_ = p.Payload.Discard()
		}
	}
}

