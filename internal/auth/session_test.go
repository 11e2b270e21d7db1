package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/emergency-backend/internal/domain"
)

type memoryUsers struct {
	mu        sync.Mutex
	users     map[int64]*domain.User
	lookupErr error
	touchErr  error
	touches   int
	panicOn   bool
}

func newMemoryUsers(ids ...int64) *memoryUsers {
	m := &memoryUsers{users: map[int64]*domain.User{}}
	for _, id := range ids {
		m.users[id] = &domain.User{ID: id, Name: "user", Email: "user@example.com"}
	}
	return m
}

func (m *memoryUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panicOn {
		panic("storage exploded")
	}
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *u
	return &clone, nil
}

func (m *memoryUsers) TouchLastActivity(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.touchErr != nil {
		return m.touchErr
	}
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.LastActivity = at
	m.touches++
	return nil
}

func (m *memoryUsers) delete(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

func (m *memoryUsers) lastActivity(id int64) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].LastActivity
}

type outcomeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *outcomeCounter) RecordAuthOutcome(stage, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[stage+":"+result]++
}

func (o *outcomeCounter) get(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[key]
}

type sessionFixture struct {
	clock     *fakeClock
	codec     *TokenCodec
	users     *memoryUsers
	outcomes  *outcomeCounter
	validator *SessionValidator
}

func newSessionFixture(t *testing.T, logger *zap.Logger, ids ...int64) *sessionFixture {
	t.Helper()
	if logger == nil {
		logger = zaptest.NewLogger(t)
	}
	f := &sessionFixture{
		clock:    newFakeClock(epoch),
		users:    newMemoryUsers(ids...),
		outcomes: &outcomeCounter{},
	}
	f.codec = newTestCodec(t, f.clock)
	f.validator = NewSessionValidator(f.codec, f.users, logger, f.outcomes)
	return f
}

func (f *sessionFixture) token(t *testing.T, subject int64) string {
	t.Helper()
	token, err := f.codec.IssueDefault(subject)
	require.NoError(t, err)
	return token
}

func TestValidateTouchesLastActivity(t *testing.T) {
	f := newSessionFixture(t, nil, 1)
	token := f.token(t, 1)
	f.clock.Advance(time.Minute)

	assert.True(t, f.validator.Validate(context.Background(), 1, token))
	assert.Equal(t, f.clock.Now(), f.users.lastActivity(1))
	assert.Equal(t, 1, f.outcomes.get("session:ok"))
}

func TestValidateRejectsSubjectMismatch(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := newSessionFixture(t, zap.New(core), 1, 2)
	tokenForTwo := f.token(t, 2)

	_, err := f.codec.Verify(tokenForTwo)
	require.NoError(t, err, "the token itself is valid")

	assert.False(t, f.validator.Validate(context.Background(), 1, tokenForTwo))
	assert.Zero(t, f.users.touches)
	assert.Equal(t, 1, logs.FilterField(zap.String("reason", "subject_mismatch")).Len())
	assert.Equal(t, 1, f.outcomes.get("session:subject_mismatch"))
}

func TestValidateRejectsDeletedUser(t *testing.T) {
	f := newSessionFixture(t, nil, 3)
	token := f.token(t, 3)
	f.users.delete(3)

	assert.False(t, f.validator.Validate(context.Background(), 3, token))
	assert.Equal(t, 1, f.outcomes.get("session:user_not_found"))
}

func TestValidateRejectsInvalidTokens(t *testing.T) {
	f := newSessionFixture(t, nil, 4)
	token, err := f.codec.Issue(4, time.Second)
	require.NoError(t, err)

	assert.False(t, f.validator.Validate(context.Background(), 4, "garbage"))

	f.clock.Advance(2 * time.Second)
	assert.False(t, f.validator.Validate(context.Background(), 4, token))
	assert.Equal(t, 1, f.outcomes.get("session:expired"))
	assert.Equal(t, 1, f.outcomes.get("session:malformed"))
}

func TestValidateStorageFailures(t *testing.T) {
	f := newSessionFixture(t, nil, 5)
	token := f.token(t, 5)

	f.users.lookupErr = errors.New("connection refused")
	assert.False(t, f.validator.Validate(context.Background(), 5, token))

	f.users.lookupErr = nil
	f.users.touchErr = errors.New("read-only transaction")
	assert.False(t, f.validator.Validate(context.Background(), 5, token))

	f.users.touchErr = nil
	f.users.panicOn = true
	assert.False(t, f.validator.Validate(context.Background(), 5, token))

	assert.Equal(t, 3, f.outcomes.get("session:storage_failure"))
}

func TestValidateConcurrently(t *testing.T) {
	f := newSessionFixture(t, zap.NewNop(), 7)
	token := f.token(t, 7)

	const workers = 64
	results := make([]bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.validator.Validate(context.Background(), 7, token)
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "worker %d", i)
	}
	assert.Equal(t, workers, f.users.touches)
	assert.Equal(t, f.clock.Now(), f.users.lastActivity(7))
}

func TestResolveUser(t *testing.T) {
	f := newSessionFixture(t, nil, 8)
	token := f.token(t, 8)

	user, ok := f.validator.ResolveUser(context.Background(), token)
	require.True(t, ok)
	assert.Equal(t, int64(8), user.ID)
	assert.Equal(t, f.clock.Now(), user.LastActivity)

	user, ok = f.validator.ResolveUser(context.Background(), "garbage")
	assert.False(t, ok)
	assert.Nil(t, user)

	f.users.delete(8)
	_, ok = f.validator.ResolveUser(context.Background(), token)
	assert.False(t, ok)
}

func TestActive(t *testing.T) {
	f := newSessionFixture(t, nil, 9)
	token := f.token(t, 9)

	assert.True(t, f.validator.Active(context.Background(), token))
	assert.False(t, f.validator.Active(context.Background(), token+"x"))
}

func TestInfo(t *testing.T) {
	f := newSessionFixture(t, nil, 10)
	token := f.token(t, 10)

	info, err := f.validator.Info(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.User.ID)
	assert.Equal(t, "user@example.com", info.User.Email)
	assert.Equal(t, int64(86400), info.Token.SecondsRemaining)

	_, err = f.validator.Info(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrMalformedToken)

	f.users.delete(10)
	_, err = f.validator.Info(context.Background(), token)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogoutLeavesTokenValid(t *testing.T) {
	f := newSessionFixture(t, nil, 11)
	token := f.token(t, 11)

	assert.True(t, f.validator.Logout(context.Background(), 11))
	assert.Equal(t, 1, f.users.touches)
	assert.True(t, f.validator.Validate(context.Background(), 11, token), "stateless tokens survive logout")

	f.users.touchErr = errors.New("down")
	assert.False(t, f.validator.Logout(context.Background(), 11))
}
