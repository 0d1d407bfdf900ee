package security

import (
	"context"
	"fmt"
	"time"

	"github.com/aidashboard/dashboard-auth/internal/observability"

	"github.com/matthewhartstonge/argon2"
	"golang.org/x/sync/semaphore"
)

// Hasher is the slow one-way hash used for passwords, OTP codes and
// at-rest refresh/reset tokens.
type Hasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, encoded string) (bool, error)
}

type Argon2Params struct {
	MemoryKB    uint32
	Time        uint32
	Parallelism uint8
	Concurrency int64
}

// Argon2Hasher produces PHC-encoded argon2id hashes. At most Concurrency
// hashes run at once; waiters give up when their context ends.
type Argon2Hasher struct {
	cfg argon2.Config
	sem *semaphore.Weighted
}

func NewArgon2Hasher(p Argon2Params) *Argon2Hasher {
	if p.Concurrency < 1 {
		p.Concurrency = 1
	}
	return &Argon2Hasher{
		cfg: argon2.Config{
			HashLength:  32,
			SaltLength:  16,
			TimeCost:    p.Time,
			MemoryCost:  p.MemoryKB,
			Parallelism: p.Parallelism,
			Mode:        argon2.ModeArgon2id,
			Version:     argon2.Version13,
		},
		sem: semaphore.NewWeighted(p.Concurrency),
	}
}

func (h *Argon2Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire hash slot: %w", err)
	}
	defer h.sem.Release(1)
	start := time.Now()
	encoded, err := h.cfg.HashEncoded([]byte(plain))
	observability.RecordPasswordHashDuration(ctx, "hash", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return "", fmt.Errorf("argon2 hash: %w", err)
	}
	return string(encoded), nil
}

// Verify reports whether plain matches encoded. A malformed encoding is a
// mismatch, not an error; only context cancellation is returned as error.
func (h *Argon2Hasher) Verify(ctx context.Context, plain, encoded string) (bool, error) {
	if encoded == "" {
		return false, nil
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("acquire hash slot: %w", err)
	}
	defer h.sem.Release(1)
	start := time.Now()
	ok, err := argon2.VerifyEncoded([]byte(plain), []byte(encoded))
	observability.RecordPasswordHashDuration(ctx, "verify", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return false, nil
	}
	return ok, nil
}
