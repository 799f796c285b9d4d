package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt work factor used for stored credentials.
const DefaultCost = 10

// bcrypt only consumes the first 72 bytes of input.
const maxPasswordBytes = 72

const dummyPassword = "dummy"

var (
	// ErrInvalidPassword is returned when a password is empty after trimming.
	ErrInvalidPassword = errors.New("password cannot be empty")

	// Version, two-digit cost, then 22 salt and 31 digest characters in the bcrypt alphabet.
	hashPattern = regexp.MustCompile(`^\$2[aby]\$\d{2}\$[./A-Za-z0-9]{53}$`)
)

// Hasher hashes and verifies passwords with bcrypt.
//
// Verify always performs a full bcrypt comparison, falling back to a
// precomputed dummy hash when the stored hash is absent or malformed, so its
// latency does not reveal whether a usable credential exists.
type Hasher struct {
	cost      int
	dummyHash []byte
	sem       *semaphore.Weighted
}

// NewHasher builds a hasher. maxConcurrent bounds simultaneous bcrypt operations.
func NewHasher(cost int, maxConcurrent int64) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = int64(runtime.GOMAXPROCS(0))
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("precompute dummy hash: %w", err)
	}

	return &Hasher{
		cost:      cost,
		dummyHash: dummy,
		sem:       semaphore.NewWeighted(maxConcurrent),
	}, nil
}

// Hash trims and hashes a plaintext password.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	normalized := strings.TrimSpace(password)
	if normalized == "" {
		return "", ErrInvalidPassword
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword(truncate(normalized), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether password matches hashed. It never fails loudly:
// malformed input, a missing hash or a cancelled context all yield false.
func (h *Hasher) Verify(ctx context.Context, password, hashed string) bool {
	candidate := truncate(strings.TrimSpace(password))

	target := []byte(hashed)
	usingDummy := !wellFormed(hashed)
	if usingDummy {
		target = h.dummyHash
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword(target, candidate)
	if usingDummy {
		return false
	}
	return err == nil
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

func wellFormed(hashed string) bool {
	if hashed == "" || !hashPattern.MatchString(hashed) {
		return false
	}
	// bcrypt.Cost rejects out-of-range work factors.
	_, err := bcrypt.Cost([]byte(hashed))
	return err == nil
}

func truncate(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
