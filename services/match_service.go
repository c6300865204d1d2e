package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/inmatch/metrics"
	"github.com/Dosada05/inmatch/models"
	"github.com/Dosada05/inmatch/realtime"
	"github.com/Dosada05/inmatch/repositories"
)

var (
	ErrMatchLeagueRequired = fmt.Errorf("%w: league is required", ErrValidationFailed)
	ErrMatchTeamsRequired  = fmt.Errorf("%w: both teams need a name and a logo", ErrValidationFailed)
	ErrMatchTimeRequired   = fmt.Errorf("%w: match time is required", ErrValidationFailed)
	ErrMatchInvalidTime    = fmt.Errorf("%w: match time must be formatted as YYYY-MM-DD HH:mm or RFC3339", ErrValidationFailed)
	ErrMatchInvalidScore   = fmt.Errorf("%w: scores cannot be negative", ErrValidationFailed)
	ErrMatchInvalidStatus  = fmt.Errorf("%w: status must be one of upcoming, ongoing, completed", ErrValidationFailed)

	ErrMatchCreationFailed = errors.New("failed to create match")
	ErrMatchUpdateFailed   = errors.New("failed to update match")
	ErrMatchDeleteFailed   = errors.New("failed to delete match")
)

// Максимальное значение elapsedMinutes: основное время матча.
const maxElapsedMinutes = 90

// Форматы, в которых админка присылает время начала матча.
var kickoffLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04"}

// Источники смены статуса для метрик и логов.
const (
	triggerAdmin   = "admin"
	triggerKickoff = "kickoff"
)

type MatchService interface {
	CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error)
	GetMatch(ctx context.Context, id int) (*MatchView, error)
	ListByLeague(ctx context.Context, leagueID int) ([]models.Match, error)
	UpdateMatch(ctx context.Context, id int, input UpdateMatchInput) (*models.Match, error)
	UpdateStatus(ctx context.Context, id int, status models.MatchStatus) (*models.Match, error)
	DeleteMatch(ctx context.Context, id int) error

	// KickoffTick moves every upcoming match whose kickoff has passed to ongoing.
	KickoffTick(ctx context.Context) error
	// RetentionTick deletes completed matches older than the retention window.
	RetentionTick(ctx context.Context) error
	// Shutdown stops pending deletion timers.
	Shutdown()
}

type TeamInput struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type CreateMatchInput struct {
	LeagueID   int                 `json:"league"`
	Team1      TeamInput           `json:"team1"`
	Team2      TeamInput           `json:"team2"`
	Time       string              `json:"time"`
	ScoreTeam1 *int                `json:"scoreTeam1"`
	ScoreTeam2 *int                `json:"scoreTeam2"`
	Status     *models.MatchStatus `json:"status"`
}

// UpdateMatchInput: nil fields are left unchanged; empty team name or logo means unchanged.
type UpdateMatchInput struct {
	LeagueID   *int                `json:"league"`
	Team1      *TeamInput          `json:"team1"`
	Team2      *TeamInput          `json:"team2"`
	Time       *string             `json:"time"`
	ScoreTeam1 *int                `json:"scoreTeam1"`
	ScoreTeam2 *int                `json:"scoreTeam2"`
	Status     *models.MatchStatus `json:"status"`
}

type MatchView struct {
	Match          *models.Match `json:"match"`
	ElapsedMinutes *int          `json:"elapsedMinutes"`
}

type MatchServiceConfig struct {
	Location  *time.Location
	Retention time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type matchService struct {
	matchRepo  repositories.MatchRepository
	leagueRepo repositories.LeagueRepository
	publisher  EventPublisher
	trigger    TaskTrigger
	location   *time.Location
	retention  time.Duration
	now        func() time.Time
	logger     *slog.Logger

	timersMu sync.Mutex
	timers   map[int]*time.Timer
	closed   bool
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	leagueRepo repositories.LeagueRepository,
	publisher EventPublisher,
	trigger TaskTrigger,
	cfg MatchServiceConfig,
	logger *slog.Logger,
) MatchService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &matchService{
		matchRepo:  matchRepo,
		leagueRepo: leagueRepo,
		publisher:  publisher,
		trigger:    trigger,
		location:   cfg.Location,
		retention:  cfg.Retention,
		now:        cfg.Now,
		logger:     logger.With("service", "match"),
		timers:     make(map[int]*time.Timer),
	}
}

func (s *matchService) CreateMatch(ctx context.Context, input CreateMatchInput) (*models.Match, error) {
	if input.LeagueID <= 0 {
		return nil, ErrMatchLeagueRequired
	}
	team1, team2 := normalizeTeam(input.Team1), normalizeTeam(input.Team2)
	if team1.Name == "" || team1.LogoURL == "" || team2.Name == "" || team2.LogoURL == "" {
		return nil, ErrMatchTeamsRequired
	}
	if strings.TrimSpace(input.Time) == "" {
		return nil, ErrMatchTimeRequired
	}
	kickoff, err := parseKickoff(input.Time, s.location)
	if err != nil {
		return nil, err
	}

	match := &models.Match{
		LeagueID:    input.LeagueID,
		Team1:       team1,
		Team2:       team2,
		KickoffTime: kickoff,
		Status:      models.MatchStatusUpcoming,
	}
	if input.ScoreTeam1 != nil {
		match.ScoreTeam1 = *input.ScoreTeam1
	}
	if input.ScoreTeam2 != nil {
		match.ScoreTeam2 = *input.ScoreTeam2
	}
	if match.ScoreTeam1 < 0 || match.ScoreTeam2 < 0 {
		return nil, ErrMatchInvalidScore
	}
	if input.Status != nil && *input.Status != "" {
		if !input.Status.Valid() {
			return nil, ErrMatchInvalidStatus
		}
		match.Status = *input.Status
	}
	if match.Status == models.MatchStatusCompleted {
		completedAt := s.now()
		match.CompletedAt = &completedAt
	}

	league, err := s.leagueRepo.GetByID(ctx, input.LeagueID)
	if err != nil {
		if errors.Is(err, repositories.ErrLeagueNotFound) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrMatchCreationFailed, err)
	}

	if err := s.matchRepo.Create(ctx, match); err != nil {
		if errors.Is(err, repositories.ErrMatchInvalidLeague) {
			return nil, ErrLeagueNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrMatchCreationFailed, err)
	}
	match.League = league

	s.logger.InfoContext(ctx, "match created",
		slog.Int("match_id", match.ID),
		slog.Int("league_id", match.LeagueID),
		slog.Time("kickoff", match.KickoffTime),
		slog.String("status", string(match.Status)))

	if match.CompletedAt != nil {
		s.arm(match.ID, *match.CompletedAt)
	}
	s.publisher.PublishGlobal(realtime.EventNewMatch, match)

	if match.Status == models.MatchStatusUpcoming && !match.KickoffTime.After(s.now()) {
		s.nudgeKickoff()
	}
	return match, nil
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*MatchView, error) {
	match, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	return &MatchView{Match: match, ElapsedMinutes: elapsedMinutes(match, s.now())}, nil
}

func (s *matchService) getMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match by id %d: %w", id, err)
	}
	return match, nil
}

func (s *matchService) ListByLeague(ctx context.Context, leagueID int) ([]models.Match, error) {
	matches, err := s.matchRepo.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for league %d: %w", leagueID, err)
	}
	if matches == nil {
		return []models.Match{}, nil
	}
	return matches, nil
}

func (s *matchService) UpdateMatch(ctx context.Context, id int, input UpdateMatchInput) (*models.Match, error) {
	match, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	edited := false
	if input.ScoreTeam1 != nil {
		match.ScoreTeam1 = *input.ScoreTeam1
		edited = true
	}
	if input.ScoreTeam2 != nil {
		match.ScoreTeam2 = *input.ScoreTeam2
		edited = true
	}
	if match.ScoreTeam1 < 0 || match.ScoreTeam2 < 0 {
		return nil, ErrMatchInvalidScore
	}
	if input.Team1 != nil && applyTeamPatch(&match.Team1, *input.Team1) {
		edited = true
	}
	if input.Team2 != nil && applyTeamPatch(&match.Team2, *input.Team2) {
		edited = true
	}
	if input.Time != nil && strings.TrimSpace(*input.Time) != "" {
		kickoff, err := parseKickoff(*input.Time, s.location)
		if err != nil {
			return nil, err
		}
		match.KickoffTime = kickoff
		edited = true
	}
	if input.LeagueID != nil && *input.LeagueID != match.LeagueID {
		league, err := s.leagueRepo.GetByID(ctx, *input.LeagueID)
		if err != nil {
			if errors.Is(err, repositories.ErrLeagueNotFound) {
				return nil, ErrLeagueNotFound
			}
			return nil, fmt.Errorf("%w (id: %d): %w", ErrMatchUpdateFailed, id, err)
		}
		match.LeagueID = league.ID
		match.League = league
		edited = true
	}

	var nextStatus models.MatchStatus
	if input.Status != nil && *input.Status != "" {
		if !input.Status.Valid() {
			return nil, ErrMatchInvalidStatus
		}
		nextStatus = *input.Status
	}

	if edited {
		if err := s.matchRepo.Update(ctx, match); err != nil {
			return nil, s.mapUpdateError(id, err)
		}
	}
	if nextStatus != "" && nextStatus != match.Status {
		if err := s.applyStatus(ctx, match, nextStatus); err != nil {
			return nil, err
		}
	}

	if edited {
		s.publisher.PublishToMatch(match.ID, realtime.EventMatchUpdate, match)
		if match.Status == models.MatchStatusUpcoming && !match.KickoffTime.After(s.now()) {
			s.nudgeKickoff()
		}
	}
	return match, nil
}

func (s *matchService) UpdateStatus(ctx context.Context, id int, status models.MatchStatus) (*models.Match, error) {
	if !status.Valid() {
		return nil, ErrMatchInvalidStatus
	}
	match, err := s.getMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if match.Status == status {
		return match, nil
	}
	if err := s.applyStatus(ctx, match, status); err != nil {
		return nil, err
	}
	return match, nil
}

// applyStatus persists an admin-driven status change and emits statusUpdate.
func (s *matchService) applyStatus(ctx context.Context, match *models.Match, to models.MatchStatus) error {
	from := match.Status

	var completedAt *time.Time
	if to == models.MatchStatusCompleted {
		now := s.now()
		completedAt = &now
	}

	if err := s.matchRepo.SetStatus(ctx, match.ID, to, completedAt); err != nil {
		return s.mapUpdateError(match.ID, err)
	}
	match.Status = to
	match.CompletedAt = completedAt

	if to.IsReverseOf(from) {
		s.logger.WarnContext(ctx, "match status overridden backwards",
			slog.Int("match_id", match.ID),
			slog.String("from", string(from)),
			slog.String("to", string(to)))
	} else {
		s.logger.InfoContext(ctx, "match status changed",
			slog.Int("match_id", match.ID),
			slog.String("from", string(from)),
			slog.String("to", string(to)))
	}
	metrics.StatusTransitions.WithLabelValues(string(from), string(to), triggerAdmin).Inc()

	switch {
	case to == models.MatchStatusCompleted:
		s.arm(match.ID, *completedAt)
	case from == models.MatchStatusCompleted:
		s.disarm(match.ID)
	}

	s.publishStatus(match.ID, to)
	return nil
}

func (s *matchService) mapUpdateError(id int, err error) error {
	switch {
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrMatchInvalidLeague):
		return ErrLeagueNotFound
	default:
		return fmt.Errorf("%w (id: %d): %w", ErrMatchUpdateFailed, id, err)
	}
}

func (s *matchService) DeleteMatch(ctx context.Context, id int) error {
	if err := s.matchRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("%w (id: %d): %w", ErrMatchDeleteFailed, id, err)
	}
	s.disarm(id)
	metrics.MatchesDeleted.WithLabelValues(triggerAdmin).Inc()
	s.logger.InfoContext(ctx, "match deleted", slog.Int("match_id", id), slog.String("reason", triggerAdmin))
	s.publisher.PublishGlobal(realtime.EventMatchDeleted, MatchDeletedEvent{MatchID: id})
	return nil
}

func (s *matchService) KickoffTick(ctx context.Context) error {
	now := s.now()
	due, err := s.matchRepo.ListDueForKickoff(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list matches due for kickoff: %w", err)
	}

	var errs []error
	for _, m := range due {
		won, err := s.matchRepo.CompareAndSetStatus(ctx, m.ID, models.MatchStatusUpcoming, models.MatchStatusOngoing, nil)
		if err != nil {
			s.logger.ErrorContext(ctx, "kickoff transition failed", slog.Int("match_id", m.ID), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("match %d: %w", m.ID, err))
			continue
		}
		if !won {
			// Статус уже изменён параллельным тиком или админом.
			continue
		}
		metrics.StatusTransitions.WithLabelValues(string(models.MatchStatusUpcoming), string(models.MatchStatusOngoing), triggerKickoff).Inc()
		s.logger.InfoContext(ctx, "match kicked off",
			slog.Int("match_id", m.ID),
			slog.Time("kickoff", m.KickoffTime))
		s.publishStatus(m.ID, models.MatchStatusOngoing)
	}
	return errors.Join(errs...)
}

func (s *matchService) RetentionTick(ctx context.Context) error {
	cutoff := s.now().Add(-s.retention)
	ids, err := s.matchRepo.ListCompletedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list expired matches: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if _, err := s.expire(ctx, id, "retention"); err != nil {
			errs = append(errs, fmt.Errorf("match %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// expire removes a match if it is still completed and past retention. Both the
// one-shot timer and RetentionTick go through here, so matchDeleted fires once.
func (s *matchService) expire(ctx context.Context, id int, reason string) (bool, error) {
	cutoff := s.now().Add(-s.retention)
	deleted, err := s.matchRepo.DeleteIfCompletedBefore(ctx, id, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete expired match", slog.Int("match_id", id), slog.Any("error", err))
		return false, err
	}
	if !deleted {
		return false, nil
	}

	s.disarm(id)
	metrics.MatchesDeleted.WithLabelValues(reason).Inc()
	s.logger.InfoContext(ctx, "completed match deleted after retention",
		slog.Int("match_id", id),
		slog.String("reason", reason),
		slog.Duration("retention", s.retention))
	s.publisher.PublishGlobal(realtime.EventMatchDeleted, MatchDeletedEvent{MatchID: id})
	return true, nil
}

func (s *matchService) publishStatus(matchID int, status models.MatchStatus) {
	event := StatusEvent{MatchID: matchID, Status: status}
	s.publisher.PublishToMatch(matchID, realtime.EventStatusUpdate, event)
	s.publisher.PublishGlobal(realtime.EventStatusUpdate, event)
}

func (s *matchService) nudgeKickoff() {
	if s.trigger != nil {
		s.trigger.Trigger(TaskKickoffWatch)
	}
}

// arm schedules deletion of a completed match at completedAt + retention.
func (s *matchService) arm(id int, completedAt time.Time) {
	delay := completedAt.Add(s.retention).Sub(s.now())
	if delay < 0 {
		delay = 0
	}

	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.timersMu.Lock()
		if s.timers[id] == timer {
			delete(s.timers, id)
		}
		s.timersMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, _ = s.expire(ctx, id, "timer")
	})
	s.timers[id] = timer
}

func (s *matchService) disarm(id int) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *matchService) Shutdown() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func normalizeTeam(in TeamInput) models.TeamInfo {
	return models.TeamInfo{Name: strings.TrimSpace(in.Name), LogoURL: strings.TrimSpace(in.Logo)}
}

func applyTeamPatch(team *models.TeamInfo, patch TeamInput) bool {
	changed := false
	if name := strings.TrimSpace(patch.Name); name != "" && name != team.Name {
		team.Name = name
		changed = true
	}
	if logo := strings.TrimSpace(patch.Logo); logo != "" && logo != team.LogoURL {
		team.LogoURL = logo
		changed = true
	}
	return changed
}

func parseKickoff(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range kickoffLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, ErrMatchInvalidTime
}

// elapsedMinutes is set only for ongoing matches and is clamped to [0, 90].
func elapsedMinutes(m *models.Match, now time.Time) *int {
	if m.Status != models.MatchStatusOngoing {
		return nil
	}
	minutes := int(now.Sub(m.KickoffTime) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	if minutes > maxElapsedMinutes {
		minutes = maxElapsedMinutes
	}
	return &minutes
}
