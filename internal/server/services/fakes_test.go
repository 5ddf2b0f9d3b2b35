package services

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tokenauth/internal/common"
	"github.com/dmitrijs2005/tokenauth/internal/dbx"
	"github.com/dmitrijs2005/tokenauth/internal/server/auth"
	"github.com/dmitrijs2005/tokenauth/internal/server/models"
	tokensrepo "github.com/dmitrijs2005/tokenauth/internal/server/repositories/tokens"
	usersrepo "github.com/dmitrijs2005/tokenauth/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// memStore backs both fake repositories. The *Err fields force failures.
type memStore struct {
	mu     sync.Mutex
	seq    int
	users  map[string]*models.User
	tokens map[string]*models.Token

	createUserErr  error
	getUserErr     error
	updateUserErr  error
	createTokenErr error
	findTokenErr   error
	rotateErr      error
	deleteTokenErr error
}

func newMemStore() *memStore {
	return &memStore{users: map[string]*models.User{}, tokens: map[string]*models.Token{}}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return prefix + strconv.Itoa(m.seq)
}

type fakeUsersRepo struct{ m *memStore }

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.createUserErr != nil {
		return nil, f.m.createUserErr
	}
	for _, existing := range f.m.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = f.m.nextID("u")
	cp := *u
	f.m.users[u.ID] = &cp
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.getUserErr != nil {
		return nil, f.m.getUserErr
	}
	for _, u := range f.m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.getUserErr != nil {
		return nil, f.m.getUserErr
	}
	u, ok := f.m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) Update(_ context.Context, u *models.User) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.updateUserErr != nil {
		return f.m.updateUserErr
	}
	if _, ok := f.m.users[u.ID]; !ok {
		return common.ErrorNotFound
	}
	cp := *u
	f.m.users[u.ID] = &cp
	return nil
}

type fakeTokensRepo struct{ m *memStore }

func (f *fakeTokensRepo) Create(_ context.Context, t *models.Token) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.createTokenErr != nil {
		return f.m.createTokenErr
	}
	t.ID = f.m.nextID("t")
	cp := *t
	f.m.tokens[t.ID] = &cp
	return nil
}

func (f *fakeTokensRepo) FindByAccessToken(_ context.Context, access string) (*models.Token, error) {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.findTokenErr != nil {
		return nil, f.m.findTokenErr
	}
	for _, t := range f.m.tokens {
		if t.AccessToken == access {
			cp := *t
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTokensRepo) Rotate(_ context.Context, t *models.Token, previousRefresh string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.rotateErr != nil {
		return f.m.rotateErr
	}
	stored, ok := f.m.tokens[t.ID]
	if !ok || stored.RefreshToken != previousRefresh {
		return common.ErrVersionConflict
	}
	cp := *t
	f.m.tokens[t.ID] = &cp
	return nil
}

func (f *fakeTokensRepo) Delete(_ context.Context, id string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	if f.m.deleteTokenErr != nil {
		return f.m.deleteTokenErr
	}
	delete(f.m.tokens, id)
	return nil
}

type fakeRepoManager struct{ m *memStore }

func (r *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (r *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return &fakeUsersRepo{m: r.m} }
func (r *fakeRepoManager) Tokens(dbx.DBTX) tokensrepo.Repository        { return &fakeTokensRepo{m: r.m} }

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	svc   *AuthService
	store *memStore
	clock *testClock
	mock  sqlmock.Sqlmock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := newMemStore()
	clock := &testClock{now: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	tokens := auth.NewTokenFactory(time.Hour, 3, clock.Now)
	svc := NewAuthService(db, &fakeRepoManager{m: store}, tokens, auth.NewFastArgon2Hasher())

	return &fixture{svc: svc, store: store, clock: clock, mock: mock}
}

func (f *fixture) expectCommit() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *fixture) expectRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

// register creates a user through the service and returns its credentials.
func (f *fixture) register(t *testing.T, email, name, password string) *Credentials {
	t.Helper()
	f.expectCommit()
	creds, err := f.svc.Register(context.Background(), RegisterInput{Username: email, Name: name, Password: password})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return creds
}

func (f *fixture) authenticate(t *testing.T, creds *Credentials, allowExpired bool) (*Session, error) {
	t.Helper()
	return f.svc.Authenticate(context.Background(), auth.EncodeToken(creds.AccessToken), allowExpired)
}
