package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Dosada05/inmatch/models"
	"github.com/Dosada05/inmatch/repositories"
	"github.com/Dosada05/inmatch/storage"
)

// --- clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// --- publisher ---

type publishedEvent struct {
	Room    int // 0 for global
	Event   string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishToMatch(matchID int, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Room: matchID, Event: event, Payload: payload})
}

func (p *recordingPublisher) PublishGlobal(event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Event: event, Payload: payload})
}

func (p *recordingPublisher) count(event string, room int, global bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Event != event {
			continue
		}
		if global && e.Room == 0 || !global && e.Room == room {
			n++
		}
	}
	return n
}

type triggerRecorder struct {
	mu    sync.Mutex
	names []string
}

func (t *triggerRecorder) Trigger(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names = append(t.names, name)
	return true
}

// --- object store ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Upload(ctx context.Context, in storage.UploadInput) (*storage.UploadResult, error) {
	if in.Body != nil {
		_, _ = io.Copy(io.Discard, in.Body)
	}
	args := m.Called(ctx, in)
	switch res := args.Get(0).(type) {
	case func(context.Context, storage.UploadInput) *storage.UploadResult:
		return res(ctx, in), args.Error(1)
	case *storage.UploadResult:
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

// echoUpload makes Upload succeed with the requested key.
func echoUpload(in storage.UploadInput) *storage.UploadResult {
	return &storage.UploadResult{Key: in.Key, Location: "https://cdn.test/" + in.Key}
}

// --- payload ---

type memPayload struct {
	name, contentType string
	data              []byte
	mu                sync.Mutex
	discarded         int
}

func newPayload(name, contentType, data string) *memPayload {
	return &memPayload{name: name, contentType: contentType, data: []byte(data)}
}

func (p *memPayload) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(p.data)), nil
}
func (p *memPayload) Filename() string    { return p.name }
func (p *memPayload) ContentType() string { return p.contentType }
func (p *memPayload) Size() int64         { return int64(len(p.data)) }
func (p *memPayload) Discard() error {
	p.mu.Lock()
	p.discarded++
	p.mu.Unlock()
	return nil
}
func (p *memPayload) discardCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discarded
}

// --- repositories ---

type fakeLeagueRepo struct {
	mu      sync.Mutex
	leagues map[int]*models.League
	nextID  int
}

func newFakeLeagueRepo(leagues ...models.League) *fakeLeagueRepo {
	r := &fakeLeagueRepo{leagues: make(map[int]*models.League)}
	for i := range leagues {
		l := leagues[i]
		r.leagues[l.ID] = &l
		if l.ID > r.nextID {
			r.nextID = l.ID
		}
	}
	return r
}

func (r *fakeLeagueRepo) Create(_ context.Context, l *models.League) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.leagues {
		if existing.Name == l.Name {
			return repositories.ErrLeagueNameConflict
		}
	}
	r.nextID++
	l.ID = r.nextID
	cp := *l
	r.leagues[l.ID] = &cp
	return nil
}

func (r *fakeLeagueRepo) GetByID(_ context.Context, id int) (*models.League, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leagues[id]
	if !ok {
		return nil, repositories.ErrLeagueNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLeagueRepo) List(context.Context) ([]models.League, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.League, 0, len(r.leagues))
	for _, l := range r.leagues {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeLeagueRepo) Update(_ context.Context, l *models.League) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leagues[l.ID]; !ok {
		return repositories.ErrLeagueNotFound
	}
	for id, existing := range r.leagues {
		if id != l.ID && existing.Name == l.Name {
			return repositories.ErrLeagueNameConflict
		}
	}
	cp := *l
	r.leagues[l.ID] = &cp
	return nil
}

func (r *fakeLeagueRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leagues[id]; !ok {
		return repositories.ErrLeagueNotFound
	}
	delete(r.leagues, id)
	return nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches map[int]*models.Match
	nextID  int
	casErr  error
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match)}
}

func (r *fakeMatchRepo) put(m models.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches[m.ID] = &m
	if m.ID > r.nextID {
		r.nextID = m.ID
	}
}

func (r *fakeMatchRepo) get(id int) (models.Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return models.Match{}, false
	}
	return *m, true
}

func (r *fakeMatchRepo) Create(_ context.Context, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	cp := *m
	r.matches[m.ID] = &cp
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) ListByLeague(_ context.Context, leagueID int) ([]models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Match, 0)
	for _, m := range r.matches {
		if m.LeagueID == leagueID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) Update(_ context.Context, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.matches[m.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	cp := *m
	cp.Status = cur.Status
	cp.CompletedAt = cur.CompletedAt
	r.matches[m.ID] = &cp
	return nil
}

func (r *fakeMatchRepo) SetStatus(_ context.Context, id int, status models.MatchStatus, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.Status = status
	m.CompletedAt = completedAt
	return nil
}

func (r *fakeMatchRepo) CompareAndSetStatus(_ context.Context, id int, from, to models.MatchStatus, completedAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.casErr != nil {
		return false, r.casErr
	}
	m, ok := r.matches[id]
	if !ok || m.Status != from {
		return false, nil
	}
	m.Status = to
	m.CompletedAt = completedAt
	return true, nil
}

func (r *fakeMatchRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[id]; !ok {
		return repositories.ErrMatchNotFound
	}
	delete(r.matches, id)
	return nil
}

func (r *fakeMatchRepo) ListDueForKickoff(_ context.Context, now time.Time) ([]models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Match, 0)
	for _, m := range r.matches {
		if m.Status == models.MatchStatusUpcoming && !m.KickoffTime.After(now) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) ListCompletedBefore(_ context.Context, cutoff time.Time) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0)
	for _, m := range r.matches {
		if m.Status == models.MatchStatusCompleted && m.CompletedAt != nil && !m.CompletedAt.After(cutoff) {
			ids = append(ids, m.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *fakeMatchRepo) DeleteIfCompletedBefore(_ context.Context, id int, cutoff time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok || m.Status != models.MatchStatusCompleted || m.CompletedAt == nil || m.CompletedAt.After(cutoff) {
		return false, nil
	}
	delete(r.matches, id)
	return true, nil
}

type fakeDetailsRepo struct {
	mu        sync.Mutex
	details   map[int]*models.MatchDetails
	nextID    int
	updateErr error
	updates   int
}

func newFakeDetailsRepo() *fakeDetailsRepo {
	return &fakeDetailsRepo{details: make(map[int]*models.MatchDetails)}
}

func cloneDetails(d *models.MatchDetails) *models.MatchDetails {
	cp := *d
	cp.Videos = append(models.VideoList{}, d.Videos...)
	return &cp
}

func (r *fakeDetailsRepo) put(d models.MatchDetails) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	d.ID = r.nextID
	r.details[d.MatchID] = cloneDetails(&d)
}

func (r *fakeDetailsRepo) get(matchID int) (*models.MatchDetails, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.details[matchID]
	if !ok {
		return nil, false
	}
	return cloneDetails(d), true
}

func (r *fakeDetailsRepo) Create(_ context.Context, d *models.MatchDetails) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.details[d.MatchID]; ok {
		return repositories.ErrMatchDetailsExist
	}
	r.nextID++
	d.ID = r.nextID
	r.details[d.MatchID] = cloneDetails(d)
	return nil
}

func (r *fakeDetailsRepo) GetByMatchID(_ context.Context, matchID int) (*models.MatchDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.details[matchID]
	if !ok {
		return nil, repositories.ErrMatchDetailsNotFound
	}
	return cloneDetails(d), nil
}

func (r *fakeDetailsRepo) Update(_ context.Context, d *models.MatchDetails) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.details[d.MatchID]; !ok {
		return repositories.ErrMatchDetailsNotFound
	}
	r.updates++
	r.details[d.MatchID] = cloneDetails(d)
	return nil
}

func (r *fakeDetailsRepo) ListReferencingStorageID(_ context.Context, storageID string) ([]models.MatchDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.MatchDetails, 0)
	for _, d := range r.details {
		for _, v := range d.Videos {
			if v.StorageID() == storageID {
				out = append(out, *cloneDetails(d))
				break
			}
		}
	}
	return out, nil
}

type fakeVideoRepo struct {
	mu      sync.Mutex
	videos  map[int]*models.Video
	nextID  int
	details *fakeDetailsRepo
	refErr  error
}

func newFakeVideoRepo(details *fakeDetailsRepo) *fakeVideoRepo {
	return &fakeVideoRepo{videos: make(map[int]*models.Video), details: details}
}

func (r *fakeVideoRepo) Create(_ context.Context, v *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.videos {
		if v.StorageID() != "" && existing.StorageID() == v.StorageID() {
			return repositories.ErrVideoStorageConflict
		}
	}
	r.nextID++
	v.ID = r.nextID
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	cp := *v
	r.videos[v.ID] = &cp
	return nil
}

func (r *fakeVideoRepo) GetByID(_ context.Context, id int) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return nil, repositories.ErrVideoNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVideoRepo) GetByStorageID(_ context.Context, storageID string) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.videos {
		if v.StorageID() == storageID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, repositories.ErrVideoNotFound
}

func (r *fakeVideoRepo) List(context.Context) ([]models.Video, error) {
	return r.ListOlderThan(context.Background(), time.Now().Add(100*365*24*time.Hour))
}

func (r *fakeVideoRepo) ListOlderThan(_ context.Context, cutoff time.Time) ([]models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Video, 0)
	for _, v := range r.videos {
		if v.CreatedAt.Before(cutoff) {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeVideoRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.videos[id]; !ok {
		return repositories.ErrVideoNotFound
	}
	delete(r.videos, id)
	return nil
}

func (r *fakeVideoRepo) DeleteByStorageID(_ context.Context, storageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, v := range r.videos {
		if v.StorageID() == storageID {
			delete(r.videos, id)
		}
	}
	return nil
}

func (r *fakeVideoRepo) IsReferenced(ctx context.Context, storageID string) (bool, error) {
	if r.refErr != nil {
		return false, r.refErr
	}
	if r.details == nil {
		return false, nil
	}
	list, err := r.details.ListReferencingStorageID(ctx, storageID)
	return len(list) > 0, err
}

func (r *fakeVideoRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.videos)
}

type fakeAdminRepo struct {
	mu     sync.Mutex
	admins map[int]*models.Admin
	nextID int
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{admins: make(map[int]*models.Admin)}
}

func (r *fakeAdminRepo) Create(_ context.Context, a *models.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.admins {
		if existing.Email == a.Email {
			return repositories.ErrAdminEmailConflict
		}
	}
	r.nextID++
	a.ID = r.nextID
	cp := *a
	r.admins[a.ID] = &cp
	return nil
}

func (r *fakeAdminRepo) GetByID(_ context.Context, id int) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.admins[id]
	if !ok {
		return nil, repositories.ErrAdminNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAdminRepo) GetByEmail(_ context.Context, email string) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repositories.ErrAdminNotFound
}

func (r *fakeAdminRepo) List(context.Context) ([]models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Admin, 0, len(r.admins))
	for _, a := range r.admins {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAdminRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.admins[id]; !ok {
		return repositories.ErrAdminNotFound
	}
	delete(r.admins, id)
	return nil
}

func (r *fakeAdminRepo) CountByRole(_ context.Context, role models.AdminRole) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.admins {
		if a.Role == role {
			n++
		}
	}
	return n, nil
}

var errBoom = errors.New("boom")

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
