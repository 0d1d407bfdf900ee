package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aidashboard/dashboard-auth/internal/domain"
	"github.com/aidashboard/dashboard-auth/internal/idgen"
	"github.com/aidashboard/dashboard-auth/internal/repository"
	"github.com/aidashboard/dashboard-auth/internal/security"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db           *gorm.DB
	users        repository.UserRepository
	credentials  repository.CredentialRepository
	links        repository.OAuthLinkRepository
	sessions     repository.SessionRepository
	store        SecretStore
	hasher       *security.Argon2Hasher
	jwt          *security.JWTManager
	ids          idgen.Generator
	tokens       *TokenService
	otp          *OTPService
	credSvc      *CredentialService
	verification *VerificationService
	userSvc      *UserService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Credential{}, &domain.OAuthLink{}, &domain.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestHasher() *security.Argon2Hasher {
	return security.NewArgon2Hasher(security.Argon2Params{MemoryKB: 1024, Time: 1, Parallelism: 1, Concurrency: 4})
}

func newTestJWT() *security.JWTManager {
	return security.NewJWTManager(security.JWTOptions{
		Issuer:   "dashboard-auth",
		Audience: "dashboard",
		Access:   security.TokenPolicy{Secret: []byte("access-secret-0123456789abcdefghij"), TTL: 15 * time.Minute},
		Refresh:  security.TokenPolicy{Secret: []byte("refresh-secret-0123456789abcdefghi"), TTL: 30 * 24 * time.Hour},
		Reset:    security.TokenPolicy{Secret: []byte("reset-secret-0123456789abcdefghijk"), TTL: 15 * time.Minute},
	})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, client := newRedisClientForTest(t)
	return newFixtureWithStore(t, NewRedisSecretStore(client, ""))
}

func newFixtureWithStore(t *testing.T, store SecretStore) *fixture {
	t.Helper()
	db := newTestDB(t)
	ids, err := idgen.NewSnowflakeGenerator(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	f := &fixture{
		db:          db,
		users:       repository.NewUserRepository(db),
		credentials: repository.NewCredentialRepository(db),
		links:       repository.NewOAuthLinkRepository(db),
		sessions:    repository.NewSessionRepository(db),
		store:       store,
		hasher:      newTestHasher(),
		jwt:         newTestJWT(),
		ids:         ids,
	}
	f.tokens = NewTokenService(f.jwt, f.hasher, f.sessions, f.users, f.ids)
	f.otp = NewOTPService(f.store, f.hasher, 5*time.Minute, 3)
	f.credSvc = NewCredentialService(f.users, f.credentials, f.store, f.hasher, f.tokens, 15*time.Minute)
	f.verification = NewVerificationService(f.users, f.otp)
	f.userSvc = NewUserService(f.users, f.hasher, f.ids)
	return f
}

func (f *fixture) register(t *testing.T, email, password string) *domain.User {
	t.Helper()
	u, err := f.userSvc.RegisterLocal(context.Background(), email, password, "")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

// memorySessionRepo is a mutex-guarded SessionRepository with the same
// replace semantics as the gorm one, for race tests.
type memorySessionRepo struct {
	mu   sync.Mutex
	rows map[int64]domain.Session
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{rows: map[int64]domain.Session{}}
}

func (r *memorySessionRepo) FindByUserDevice(_ context.Context, userID int64, ua string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.UserID == userID && s.UserAgent == ua {
			cp := s
			return &cp, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (r *memorySessionRepo) ListByUserID(_ context.Context, userID int64) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.rows {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memorySessionRepo) ReplaceForDevice(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if row.UserID == s.UserID && row.UserAgent == s.UserAgent {
			delete(r.rows, id)
		}
	}
	r.rows[s.ID] = *s
	return nil
}

func (r *memorySessionRepo) ReplaceIfCurrent(_ context.Context, currentID int64, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[currentID]
	if !ok || row.UserID != s.UserID || row.UserAgent != s.UserAgent {
		return repository.ErrSessionNotFound
	}
	delete(r.rows, currentID)
	r.rows[s.ID] = *s
	return nil
}

func (r *memorySessionRepo) DeleteByUserDevice(_ context.Context, userID int64, ua string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, row := range r.rows {
		if row.UserID == userID && row.UserAgent == ua {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *memorySessionRepo) DeleteByID(_ context.Context, userID, id int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok && row.UserID == userID {
		delete(r.rows, id)
		return 1, nil
	}
	return 0, nil
}

func (r *memorySessionRepo) CleanupExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, row := range r.rows {
		if row.Expired(now) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}
