package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/inmatch/models"
	"github.com/Dosada05/inmatch/realtime"
)

type matchFixture struct {
	svc       MatchService
	matches   *fakeMatchRepo
	leagues   *fakeLeagueRepo
	publisher *recordingPublisher
	trigger   *triggerRecorder
	clock     *fakeClock
}

func newMatchFixture(t *testing.T, retention time.Duration, now func() time.Time) *matchFixture {
	t.Helper()
	f := &matchFixture{
		matches:   newFakeMatchRepo(),
		leagues:   newFakeLeagueRepo(models.League{ID: 1, Name: "Premier League", LogoURL: "https://logo/pl.png"}),
		publisher: &recordingPublisher{},
		trigger:   &triggerRecorder{},
		clock:     newClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)),
	}
	if now == nil {
		now = f.clock.Now
	}
	lagos, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)
	f.svc = NewMatchService(f.matches, f.leagues, f.publisher, f.trigger, MatchServiceConfig{
		Location:  lagos,
		Retention: retention,
		Now:       now,
	}, nil)
	t.Cleanup(f.svc.Shutdown)
	return f
}

func validMatchInput() CreateMatchInput {
	return CreateMatchInput{
		LeagueID: 1,
		Team1:    TeamInput{Name: "Arsenal", Logo: "https://logo/ars.png"},
		Team2:    TeamInput{Name: "Chelsea", Logo: "https://logo/che.png"},
		Time:     "2025-01-01 16:00",
	}
}

func TestCreateMatch_ParsesKickoffInConfiguredZone(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)

	match, err := f.svc.CreateMatch(context.Background(), validMatchInput())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC), match.KickoffTime.UTC())
	assert.Equal(t, models.MatchStatusUpcoming, match.Status)
	assert.NotNil(t, match.League)
	assert.Equal(t, 1, f.publisher.count(realtime.EventNewMatch, 0, true))
}

func TestCreateMatch_Validation(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateMatchInput)
		want   error
	}{
		{"no league", func(in *CreateMatchInput) { in.LeagueID = 0 }, ErrMatchLeagueRequired},
		{"no team logo", func(in *CreateMatchInput) { in.Team2.Logo = " " }, ErrMatchTeamsRequired},
		{"no time", func(in *CreateMatchInput) { in.Time = "" }, ErrMatchTimeRequired},
		{"bad time", func(in *CreateMatchInput) { in.Time = "tomorrow" }, ErrMatchInvalidTime},
		{"negative score", func(in *CreateMatchInput) { in.ScoreTeam1 = intPtr(-1) }, ErrMatchInvalidScore},
		{"unknown league", func(in *CreateMatchInput) { in.LeagueID = 42 }, ErrLeagueNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validMatchInput()
			tt.mutate(&in)
			_, err := f.svc.CreateMatch(ctx, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.ErrorIs(t, ErrMatchTeamsRequired, ErrValidationFailed)
}

func TestCreateMatch_PastKickoffNudgesWatcher(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	f.clock.Set(time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.CreateMatch(context.Background(), validMatchInput())
	require.NoError(t, err)
	assert.Equal(t, []string{TaskKickoffWatch}, f.trigger.names)
}

func TestKickoffTick_FlipsAfterKickoff(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	ctx := context.Background()

	match, err := f.svc.CreateMatch(ctx, validMatchInput())
	require.NoError(t, err)

	f.clock.Set(time.Date(2025, 1, 1, 14, 59, 59, 0, time.UTC))
	require.NoError(t, f.svc.KickoffTick(ctx))
	stored, _ := f.matches.get(match.ID)
	assert.Equal(t, models.MatchStatusUpcoming, stored.Status)

	f.clock.Set(time.Date(2025, 1, 1, 15, 0, 1, 0, time.UTC))
	require.NoError(t, f.svc.KickoffTick(ctx))
	stored, _ = f.matches.get(match.ID)
	assert.Equal(t, models.MatchStatusOngoing, stored.Status)
	assert.Equal(t, 1, f.publisher.count(realtime.EventStatusUpdate, match.ID, false))
	assert.Equal(t, 1, f.publisher.count(realtime.EventStatusUpdate, 0, true))
}

func TestKickoffTick_ConcurrentTicksEmitOnce(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	ctx := context.Background()

	match, err := f.svc.CreateMatch(ctx, validMatchInput())
	require.NoError(t, err)
	f.clock.Set(time.Date(2025, 1, 1, 16, 0, 0, 0, time.UTC))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.svc.KickoffTick(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.publisher.count(realtime.EventStatusUpdate, match.ID, false))
	assert.Equal(t, 1, f.publisher.count(realtime.EventStatusUpdate, 0, true))
}

func TestKickoffTick_CollectsErrors(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	ctx := context.Background()

	_, err := f.svc.CreateMatch(ctx, validMatchInput())
	require.NoError(t, err)
	f.clock.Set(time.Date(2025, 1, 1, 16, 0, 0, 0, time.UTC))
	f.matches.casErr = errBoom

	err = f.svc.KickoffTick(ctx)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, f.publisher.count(realtime.EventStatusUpdate, 0, true))
}

func TestGetMatch_ElapsedMinutes(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	ctx := context.Background()

	match, err := f.svc.CreateMatch(ctx, validMatchInput())
	require.NoError(t, err)

	view, err := f.svc.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Nil(t, view.ElapsedMinutes)

	_, err = f.svc.UpdateStatus(ctx, match.ID, models.MatchStatusOngoing)
	require.NoError(t, err)

	f.clock.Set(time.Date(2025, 1, 1, 15, 37, 30, 0, time.UTC))
	view, err = f.svc.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	require.NotNil(t, view.ElapsedMinutes)
	assert.Equal(t, 37, *view.ElapsedMinutes)

	f.clock.Set(time.Date(2025, 1, 1, 18, 0, 0, 0, time.UTC))
	view, err = f.svc.GetMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, *view.ElapsedMinutes)

	_, err = f.svc.GetMatch(ctx, 999)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	ctx := context.Background()

	match, err := f.svc.CreateMatch(ctx, validMatchInput())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, match.ID, models.MatchStatusUpcoming)
	require.NoError(t, err)
	assert.Equal(t, 0, f.publisher.count(realtime.EventStatusUpdate, 0, true))

	_, err = f.svc.UpdateStatus(ctx, match.ID, "halftime")
	assert.ErrorIs(t, err, ErrMatchInvalidStatus)
}

func TestUpdateStatus_ReverseOverrideAllowed(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	ctx := context.Background()

	match, err := f.svc.CreateMatch(ctx, validMatchInput())
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, match.ID, models.MatchStatusCompleted)
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, match.ID, models.MatchStatusUpcoming)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusUpcoming, updated.Status)
	assert.Nil(t, updated.CompletedAt)
	assert.Equal(t, 2, f.publisher.count(realtime.EventStatusUpdate, match.ID, false))
}

func TestRetentionTick_DeletesExpiredOnce(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	ctx := context.Background()

	match, err := f.svc.CreateMatch(ctx, validMatchInput())
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, match.ID, models.MatchStatusCompleted)
	require.NoError(t, err)

	f.clock.Set(f.clock.Now().Add(47 * time.Hour))
	require.NoError(t, f.svc.RetentionTick(ctx))
	_, ok := f.matches.get(match.ID)
	assert.True(t, ok)

	f.clock.Set(f.clock.Now().Add(time.Hour + time.Second))
	require.NoError(t, f.svc.RetentionTick(ctx))
	require.NoError(t, f.svc.RetentionTick(ctx))

	_, ok = f.matches.get(match.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, f.publisher.count(realtime.EventMatchDeleted, 0, true))
}

func TestCompletedMatch_TimerDeletes(t *testing.T) {
	f := newMatchFixture(t, 30*time.Millisecond, time.Now)
	ctx := context.Background()

	match, err := f.svc.CreateMatch(ctx, validMatchInput())
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, match.ID, models.MatchStatusCompleted)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := f.matches.get(match.ID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	// сверка после таймера ничего не добавляет
	require.NoError(t, f.svc.RetentionTick(ctx))
	assert.Equal(t, 1, f.publisher.count(realtime.EventMatchDeleted, 0, true))
}

func TestCompletedMatch_LeavingCompletedCancelsTimer(t *testing.T) {
	f := newMatchFixture(t, 50*time.Millisecond, time.Now)
	ctx := context.Background()

	match, err := f.svc.CreateMatch(ctx, validMatchInput())
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, match.ID, models.MatchStatusCompleted)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, match.ID, models.MatchStatusOngoing)
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)
	_, ok := f.matches.get(match.ID)
	assert.True(t, ok)
	assert.Equal(t, 0, f.publisher.count(realtime.EventMatchDeleted, 0, true))
}

func TestUpdateMatch_PublishesFieldEdits(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	ctx := context.Background()

	match, err := f.svc.CreateMatch(ctx, validMatchInput())
	require.NoError(t, err)

	updated, err := f.svc.UpdateMatch(ctx, match.ID, UpdateMatchInput{
		ScoreTeam1: intPtr(2),
		Team2:      &TeamInput{Name: "Chelsea FC"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.ScoreTeam1)
	assert.Equal(t, "Chelsea FC", updated.Team2.Name)
	assert.Equal(t, "https://logo/che.png", updated.Team2.LogoURL)
	assert.Equal(t, 1, f.publisher.count(realtime.EventMatchUpdate, match.ID, false))
	assert.Equal(t, 0, f.publisher.count(realtime.EventStatusUpdate, 0, true))

	_, err = f.svc.UpdateMatch(ctx, match.ID, UpdateMatchInput{LeagueID: intPtr(77)})
	assert.ErrorIs(t, err, ErrLeagueNotFound)

	_, err = f.svc.UpdateMatch(ctx, match.ID, UpdateMatchInput{Time: strPtr("32/13/2025")})
	assert.ErrorIs(t, err, ErrMatchInvalidTime)
}

func TestUpdateMatch_StatusOnly(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	ctx := context.Background()

	match, err := f.svc.CreateMatch(ctx, validMatchInput())
	require.NoError(t, err)

	status := models.MatchStatusOngoing
	_, err = f.svc.UpdateMatch(ctx, match.ID, UpdateMatchInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 0, f.publisher.count(realtime.EventMatchUpdate, match.ID, false))
	assert.Equal(t, 1, f.publisher.count(realtime.EventStatusUpdate, match.ID, false))
}

func TestDeleteMatch(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	ctx := context.Background()

	match, err := f.svc.CreateMatch(ctx, validMatchInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteMatch(ctx, match.ID))
	assert.Equal(t, 1, f.publisher.count(realtime.EventMatchDeleted, 0, true))
	assert.True(t, errors.Is(f.svc.DeleteMatch(ctx, match.ID), ErrMatchNotFound))
}

func TestListByLeague_NeverNil(t *testing.T) {
	f := newMatchFixture(t, 48*time.Hour, nil)
	matches, err := f.svc.ListByLeague(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestParseKickoff(t *testing.T) {
	lagos, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)

	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-01-01 16:00", time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC), true},
		{"2025-01-01T16:00", time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC), true},
		{"2025-01-01T16:00:00Z", time.Date(2025, 1, 1, 16, 0, 0, 0, time.UTC), true},
		{"01.01.2025 16:00", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseKickoff(tt.in, lagos)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrMatchInvalidTime)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}
