package usecase

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"reelvote/internal/data/entity"
	"reelvote/internal/data/repository"
	"reelvote/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memStore backs every fake repository with plain maps.
type memStore struct {
	mu sync.Mutex

	users      map[uuid.UUID]*entity.User
	sessions   map[string]*entity.Session
	reviews    map[int64]*entity.Review
	votes      map[voteKey]*entity.Vote
	jobs       []*entity.ScoreJob
	nextReview int64

	reviewWrites int
	ledgerCalls  []ledgerCall
	ledgerErr    error
	locks        int

	// afterLock runs once a review row has been read for update, standing in
	// for a writer that slips in between the read and the write.
	afterLock func(id int64)
}

type voteKey struct {
	voter  uuid.UUID
	review int64
}

type ledgerCall struct {
	kind  entity.LedgerKind
	id    any
	delta int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uuid.UUID]*entity.User{},
		sessions: map[string]*entity.Session{},
		reviews:  map[int64]*entity.Review{},
		votes:    map[voteKey]*entity.Vote{},
	}
}

func (s *memStore) repository() *repository.Repository {
	return &repository.Repository{
		User:     &fakeUsers{s},
		Session:  &fakeSessions{s},
		Review:   &fakeReviews{s},
		Vote:     &fakeVotes{s},
		Score:    &fakeLedger{s},
		ScoreJob: &fakeJobs{s},
	}
}

func (s *memStore) addUser(name string, role entity.UserRole) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &entity.User{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
		Username: name,
		Email:    name + "@example.com",
		Role:     role,
		IsActive: true,
	}
	s.users[u.ID] = u
	return u
}

func (s *memStore) review(id int64) entity.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.reviews[id]
}

func (s *memStore) user(id uuid.UUID) entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

// fakeUoW runs fn directly against the fake repositories.
type fakeUoW struct {
	repo *repository.Repository
	err  error
}

func (u *fakeUoW) WithinTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	if u.err != nil {
		return u.err
	}
	return fn(u.repo)
}

// ==================== USERS / SESSIONS ====================

type fakeUsers struct{ s *memStore }

func (f *fakeUsers) Create(ctx context.Context, user *entity.User) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cp := *user
	f.s.users[user.ID] = &cp
	return nil
}

func (f *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if u, ok := f.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, u := range f.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeSessions struct{ s *memStore }

func (f *fakeSessions) Create(ctx context.Context, session *entity.Session) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cp := *session
	f.s.sessions[session.Token.String()] = &cp
	return nil
}

func (f *fakeSessions) FindValidSession(ctx context.Context, token string) (*entity.Session, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	sess, ok := f.s.sessions[token]
	if !ok || sess.RevokedAt != nil {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (f *fakeSessions) Revoke(ctx context.Context, token string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	sess, ok := f.s.sessions[token]
	if !ok || sess.RevokedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now()
	sess.RevokedAt = &now
	return nil
}

// ==================== REVIEWS ====================

type fakeReviews struct{ s *memStore }

func (f *fakeReviews) Create(ctx context.Context, review *entity.Review) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.nextReview++
	review.ID = f.s.nextReview
	cp := *review
	f.s.reviews[review.ID] = &cp
	return nil
}

func (f *fakeReviews) FindByID(ctx context.Context, id int64) (*entity.Review, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if r, ok := f.s.reviews[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeReviews) FindByIDForUpdate(ctx context.Context, id int64) (*entity.Review, error) {
	review, err := f.FindByID(ctx, id)
	if review != nil && f.s.afterLock != nil {
		f.s.afterLock(id)
	}
	return review, err
}

// setStatus changes a stored review behind the service's back.
func (s *memStore) setStatus(id int64, status entity.ReviewStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reviews[id].Status = status
}

func (f *fakeReviews) FindDetailByID(ctx context.Context, id int64) (*entity.ReviewDetail, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.reviews[id]
	if !ok {
		return nil, nil
	}
	return f.s.detail(r), nil
}

func (s *memStore) detail(r *entity.Review) *entity.ReviewDetail {
	d := &entity.ReviewDetail{Review: *r}
	if u, ok := s.users[r.UserID]; ok {
		d.Author = entity.AuthorProfile{ID: u.ID, Username: u.Username, Score: u.Score}
	}
	return d
}

func (f *fakeReviews) FindActiveByAuthorAndMovie(ctx context.Context, userID uuid.UUID, movieID int64) ([]*entity.Review, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.Review
	for _, r := range f.s.reviews {
		if r.UserID == userID && r.MovieID == movieID && r.Status != entity.ReviewStatusDeleted {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeReviews) LockAuthorMovie(ctx context.Context, userID uuid.UUID, movieID int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.locks++
	return nil
}

func (f *fakeReviews) Update(ctx context.Context, review *entity.Review) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	current, ok := f.s.reviews[review.ID]
	if !ok || current.Status == entity.ReviewStatusDeleted {
		return repository.ErrStatusChanged
	}
	cp := *review
	f.s.reviews[review.ID] = &cp
	f.s.reviewWrites++
	return nil
}

func (f *fakeReviews) UpdateStatus(ctx context.Context, id int64, from []entity.ReviewStatus, status entity.ReviewStatus, rejectReason *string, updatedAt time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.reviews[id]
	if !ok || !slices.Contains(from, r.Status) {
		return repository.ErrStatusChanged
	}
	r.Status = status
	r.RejectReason = rejectReason
	r.UpdatedAt = updatedAt
	f.s.reviewWrites++
	return nil
}

func (f *fakeReviews) List(ctx context.Context, filter repository.ReviewFilter) ([]*entity.ReviewDetail, int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	var matched []*entity.Review
	for _, r := range f.s.reviews {
		if f.s.matches(filter, r) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := min(filter.Offset, len(matched))
	end := min(start+filter.Limit, len(matched))

	out := make([]*entity.ReviewDetail, 0, end-start)
	for _, r := range matched[start:end] {
		out = append(out, f.s.detail(r))
	}
	return out, total, nil
}

func (s *memStore) matches(f repository.ReviewFilter, r *entity.Review) bool {
	if f.MovieID != nil && r.MovieID != *f.MovieID {
		return false
	}
	if f.AuthorID != nil && r.UserID != *f.AuthorID {
		return false
	}
	if f.Kind != nil && r.Kind != *f.Kind {
		return false
	}
	if f.AuthorEmail != "" {
		u, ok := s.users[r.UserID]
		if !ok || !strings.Contains(strings.ToLower(u.Email), strings.ToLower(f.AuthorEmail)) {
			return false
		}
	}
	switch {
	case f.Status != nil:
		return r.Status == *f.Status
	case f.PublicOnly:
		if r.Status == entity.ReviewStatusDeleted {
			return false
		}
		return r.Kind == entity.ReviewKindTags || r.Status == entity.ReviewStatusReleased
	}
	return true
}

// ==================== VOTES ====================

type fakeVotes struct{ s *memStore }

func (f *fakeVotes) FindByVoterAndReview(ctx context.Context, voterID uuid.UUID, reviewID int64) (*entity.Vote, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if v, ok := f.s.votes[voteKey{voterID, reviewID}]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeVotes) Upsert(ctx context.Context, vote *entity.Vote) (*entity.VoteValue, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	key := voteKey{vote.VoterID, vote.ReviewID}
	if existing, ok := f.s.votes[key]; ok {
		previous := existing.Value
		existing.Value = vote.Value
		existing.UpdatedAt = vote.UpdatedAt
		return &previous, nil
	}
	cp := *vote
	cp.ID = int64(len(f.s.votes) + 1)
	f.s.votes[key] = &cp
	return nil, nil
}

func (f *fakeVotes) FindValuesForReviews(ctx context.Context, voterID uuid.UUID, reviewIDs []int64) (map[int64]entity.VoteValue, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := map[int64]entity.VoteValue{}
	for _, id := range reviewIDs {
		if v, ok := f.s.votes[voteKey{voterID, id}]; ok {
			out[id] = v.Value
		}
	}
	return out, nil
}

// ==================== LEDGER / JOBS ====================

type fakeLedger struct{ s *memStore }

func (f *fakeLedger) ApplyDelta(ctx context.Context, kind entity.LedgerKind, id any, delta int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.ledgerErr != nil {
		return f.s.ledgerErr
	}
	f.s.ledgerCalls = append(f.s.ledgerCalls, ledgerCall{kind, id, delta})

	switch kind {
	case entity.LedgerUser:
		u, ok := f.s.users[id.(uuid.UUID)]
		if !ok {
			return repository.ErrNotFound
		}
		u.Score += delta
	case entity.LedgerReview:
		r, ok := f.s.reviews[id.(int64)]
		if !ok {
			return repository.ErrNotFound
		}
		r.Score += delta
	default:
		return errors.New("unknown ledger")
	}
	return nil
}

type fakeJobs struct{ s *memStore }

func (f *fakeJobs) Enqueue(ctx context.Context, job *entity.ScoreJob) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cp := *job
	f.s.jobs = append(f.s.jobs, &cp)
	return nil
}

func (f *fakeJobs) ClaimNext(ctx context.Context) (*entity.ScoreJob, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	now := time.Now()
	for _, j := range f.s.jobs {
		if j.ProcessedAt == nil && j.DeadAt == nil && !j.AvailableAt.After(now) {
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeJobs) MarkProcessed(ctx context.Context, id uuid.UUID) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, j := range f.s.jobs {
		if j.ID == id && j.ProcessedAt == nil {
			now := time.Now()
			j.ProcessedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeJobs) RecordFailure(ctx context.Context, id uuid.UUID, cause string, retryAt time.Time, maxAttempts int) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, j := range f.s.jobs {
		if j.ID != id || j.ProcessedAt != nil {
			continue
		}
		j.Attempts++
		j.LastError = &cause
		j.AvailableAt = retryAt
		if j.Attempts >= maxAttempts {
			now := time.Now()
			j.DeadAt = &now
		}
		return j.DeadAt != nil, nil
	}
	return false, nil
}

func (f *fakeJobs) CountPending(ctx context.Context) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for _, j := range f.s.jobs {
		if j.ProcessedAt == nil && j.DeadAt == nil {
			n++
		}
	}
	return n, nil
}

// ==================== CACHE ====================

type fakeCache struct {
	mu          sync.Mutex
	items       map[int64]*entity.ReviewDetail
	invalidated []int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[int64]*entity.ReviewDetail{}}
}

func (c *fakeCache) Get(ctx context.Context, id int64) (*entity.ReviewDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[id], nil
}

func (c *fakeCache) Set(ctx context.Context, detail *entity.ReviewDetail) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[detail.ID] = detail
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

// ==================== FIXTURE ====================

type fixture struct {
	store   *memStore
	repo    *repository.Repository
	uow     *fakeUoW
	cache   *fakeCache
	reviews *reviewService
	votes   *voteService
	score   ScoreService
	worker  *ScoreWorker
}

func newFixture() *fixture {
	store := newMemStore()
	repo := store.repository()
	uow := &fakeUoW{repo: repo}
	cache := newFakeCache()
	log := zap.NewNop()

	score := NewScoreService(log)
	return &fixture{
		store:   store,
		repo:    repo,
		uow:     uow,
		cache:   cache,
		reviews: NewReviewService(repo, uow, cache, log).(*reviewService),
		votes:   NewVoteService(repo, uow, log).(*voteService),
		score:   score,
		worker:  NewScoreWorker(repo, uow, score, cache, testWorkerConfig(), log),
	}
}

// testWorkerConfig keeps failed jobs out of reach for the rest of a pass.
func testWorkerConfig() utils.WorkerConfig {
	return utils.WorkerConfig{
		Interval:    10 * time.Millisecond,
		BatchSize:   10,
		MaxAttempts: 3,
		BaseBackoff: time.Hour,
	}
}
