package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/inmatch/models"
	"github.com/Dosada05/inmatch/storage"
)

type videoFixture struct {
	*mediaFixture
	svc     VideoService
	matches *fakeMatchRepo
	clock   *fakeClock
}

func newVideoFixture(t *testing.T) *videoFixture {
	t.Helper()
	mf := newMediaFixture(t)
	f := &videoFixture{mediaFixture: mf, matches: newFakeMatchRepo(), clock: newClock(time.Now().Add(48 * time.Hour))}
	f.matches.put(models.Match{ID: 7, LeagueID: 1, Status: models.MatchStatusUpcoming})
	f.svc = NewVideoService(f.videos, f.details, f.matches, mf.media, VideoServiceConfig{
		OrphanAge: 24 * time.Hour,
		Now:       f.clock.Now,
	}, nil)
	return f
}

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		name, contentType string
		want              bool
	}{
		{"clip.mp4", "", true},
		{"clip.MOV", "application/octet-stream", true},
		{"clip.bin", "video/mp4", true},
		{"notes.txt", "text/plain", false},
		{"photo.jpg", "image/jpeg", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsVideoFile(tt.name, tt.contentType), tt.name)
	}
}

func TestVideoUpload(t *testing.T) {
	f := newVideoFixture(t)
	f.store.On("Upload", mock.Anything, keyWithPrefix("match-videos/7/", ".mp4")).
		Return(func(_ context.Context, in storage.UploadInput) *storage.UploadResult { return echoUpload(in) }, nil).Once()
	payload := newPayload("Derby Highlights.mp4", "video/mp4", "data")

	video, err := f.svc.Upload(context.Background(), UploadVideoInput{MatchID: intPtr(7), Payload: payload})
	require.NoError(t, err)

	assert.Equal(t, "Derby Highlights", video.Title)
	assert.False(t, video.IsExternalLink)
	require.NotNil(t, video.MimeType)
	assert.Equal(t, "video/mp4", *video.MimeType)
	assert.Equal(t, 1, payload.discardCount())
	assert.Equal(t, 1, f.videos.count())
}

func TestVideoUpload_Rejections(t *testing.T) {
	f := newVideoFixture(t)
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, UploadVideoInput{})
	assert.ErrorIs(t, err, ErrVideoFileRequired)

	txt := newPayload("notes.txt", "text/plain", "x")
	_, err = f.svc.Upload(ctx, UploadVideoInput{Payload: txt})
	assert.ErrorIs(t, err, ErrVideoUnsupportedType)
	assert.Equal(t, 1, txt.discardCount())

	clip := newPayload("clip.mp4", "video/mp4", "x")
	_, err = f.svc.Upload(ctx, UploadVideoInput{MatchID: intPtr(404), Payload: clip})
	assert.ErrorIs(t, err, ErrMatchNotFound)
	assert.Equal(t, 1, clip.discardCount())

	f.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestVideoDelete_StripsReferences(t *testing.T) {
	f := newVideoFixture(t)
	a := f.seedUpload(t, 7, "a.mp4")
	link := models.VideoRef{ID: "l", Title: "Link", VideoURL: "https://youtu.be/x", IsExternalLink: true}
	f.details.put(models.MatchDetails{MatchID: 7, Videos: models.VideoList{a, link}})
	f.store.On("Delete", mock.Anything, "a.mp4").Return(nil).Once()

	row, err := f.videos.GetByStorageID(context.Background(), "a.mp4")
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(context.Background(), row.ID))

	stored, _ := f.details.get(7)
	require.Len(t, stored.Videos, 1)
	assert.True(t, stored.Videos[0].IsExternalLink)
	assert.Equal(t, 0, f.videos.count())
	f.store.AssertExpectations(t)

	assert.ErrorIs(t, f.svc.Delete(context.Background(), row.ID), ErrVideoNotFound)
}

func TestSweepOrphans(t *testing.T) {
	f := newVideoFixture(t)
	ctx := context.Background()

	missing := f.seedUpload(t, 7, "missing.mp4")
	unreferenced := f.seedUpload(t, 7, "unreferenced.mp4")
	used := f.seedUpload(t, 7, "used.mp4")
	f.details.put(models.MatchDetails{MatchID: 7, Videos: models.VideoList{missing, used}})

	f.store.On("Exists", mock.Anything, "missing.mp4").Return(false, nil).Once()
	f.store.On("Exists", mock.Anything, "unreferenced.mp4").Return(true, nil).Once()
	f.store.On("Exists", mock.Anything, "used.mp4").Return(true, nil).Once()
	f.store.On("Delete", mock.Anything, "unreferenced.mp4").Return(nil).Once()

	require.NoError(t, f.svc.SweepOrphans(ctx))

	_, err := f.videos.GetByStorageID(ctx, "used.mp4")
	assert.NoError(t, err)
	_, err = f.videos.GetByStorageID(ctx, "missing.mp4")
	assert.Error(t, err)
	_, err = f.videos.GetByStorageID(ctx, unreferenced.StorageID())
	assert.Error(t, err)

	stored, _ := f.details.get(7)
	require.Len(t, stored.Videos, 1)
	assert.Equal(t, "used.mp4", stored.Videos[0].StorageID())
	f.store.AssertExpectations(t)
}

func TestSweepOrphans_PurgesDetachedVideoAfterOrphanAge(t *testing.T) {
	f := newVideoFixture(t)
	ctx := context.Background()
	details := NewMatchDetailsService(f.details, f.matches, f.media, &recordingPublisher{}, nil)

	a := f.seedUpload(t, 7, "detached.mp4")
	f.details.put(models.MatchDetails{MatchID: 7, Videos: models.VideoList{a}})
	_, err := details.RemoveVideo(ctx, 7, a.ID, RemovalDetach)
	require.NoError(t, err)
	f.store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	assert.Equal(t, 1, f.videos.count())

	f.store.On("Exists", mock.Anything, "detached.mp4").Return(true, nil).Once()
	f.store.On("Delete", mock.Anything, "detached.mp4").Return(nil).Once()
	require.NoError(t, f.svc.SweepOrphans(ctx))

	assert.Equal(t, 0, f.videos.count())
	f.store.AssertExpectations(t)
}

func TestSweepOrphans_SkipsYoungRows(t *testing.T) {
	f := newVideoFixture(t)
	f.clock.Set(time.Now())
	f.seedUpload(t, 7, "fresh.mp4")

	require.NoError(t, f.svc.SweepOrphans(context.Background()))
	f.store.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
	assert.Equal(t, 1, f.videos.count())
}
