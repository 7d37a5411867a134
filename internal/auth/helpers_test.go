package auth

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumeStudio/internal/database"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// memoryKV 是 KeyValueStore 的内存实现，语义与 Redis 对齐。
type memoryKV struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	// setErr 中的键写入时返回对应错误。
	setErr map[string]error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]memoryEntry{}}
}

func (m *memoryKV) live(key string) (memoryEntry, bool) {
	e, ok := m.data[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.data, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return "", ErrKeyNotFound
	}
	return e.value, nil
}

func (m *memoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.setErr[key]; err != nil {
		return err
	}
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.data[key] = e
	return nil
}

func (m *memoryKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryKV) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, _ := m.live(key)
	n, _ := strconv.ParseInt(e.value, 10, 64)
	n++
	e.value = strconv.FormatInt(n, 10)
	m.data[key] = e
	return n, nil
}

func (m *memoryKV) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.live(key); ok {
		e.expiresAt = time.Now().Add(ttl)
		m.data[key] = e
	}
	return nil
}

func (m *memoryKV) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return -2, nil
	}
	if e.expiresAt.IsZero() {
		return -1, nil
	}
	return time.Until(e.expiresAt), nil
}

type capturingSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *capturingSender) SendCode(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codes == nil {
		s.codes = map[string]string{}
	}
	s.codes[email] = code
	return nil
}

func (s *capturingSender) code(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[email]
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"),
		database.WithLogLevel(logger.Silent))
	require.NoError(t, err, "open sqlite")
	return db
}

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	priv, pub, err := GenerateKeyPEM(2048)
	require.NoError(t, err)
	issuer, err := NewTokenIssuer(priv, pub, 5*time.Minute, time.Hour)
	require.NoError(t, err)
	return issuer
}

type testIdentity struct {
	svc    *IdentityService
	issuer *TokenIssuer
	kv     *memoryKV
	sender *capturingSender
}

func newTestIdentityService(t *testing.T, opts IdentityOptions) testIdentity {
	t.Helper()
	issuer := newTestIssuer(t)
	kv := newMemoryKV()
	sender := &capturingSender{}
	svc := NewIdentityService(newTestDB(t), issuer, kv, sender, nil, opts)
	return testIdentity{svc: svc, issuer: issuer, kv: kv, sender: sender}
}

// confirmedAccount 注册并验证一个账号。
func (ti testIdentity) confirmedAccount(t *testing.T, username, email, password string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, ti.svc.SignUp(ctx, SignUpInput{
		Username:   username,
		Email:      email,
		Password:   password,
		GivenName:  "Ada",
		FamilyName: "Lovelace",
	}))
	require.NoError(t, ti.svc.ConfirmSignUp(ctx, email, ti.sender.code(email)))
}
