package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T, cost int) *Hasher {
	t.Helper()
	h, err := NewHasher(cost, 4)
	require.NoError(t, err)
	return h
}

func TestHasher_HashAndVerify(t *testing.T) {
	h := newTestHasher(t, bcrypt.MinCost)
	ctx := context.Background()

	hashed, err := h.Hash(ctx, "Abcdefg1")
	require.NoError(t, err)
	assert.Regexp(t, `^\$2[ayb]\$04\$`, hashed)
	assert.NotContains(t, hashed, "Abcdefg1")

	assert.True(t, h.Verify(ctx, "Abcdefg1", hashed))
	assert.True(t, h.Verify(ctx, "  Abcdefg1\t", hashed), "candidate is trimmed")
	assert.False(t, h.Verify(ctx, "abcdefg1", hashed))
	assert.False(t, h.Verify(ctx, "Abcdefg2", hashed))
	assert.False(t, h.Verify(ctx, "", hashed))
}

func TestHasher_HashTrimsInput(t *testing.T) {
	h := newTestHasher(t, bcrypt.MinCost)
	ctx := context.Background()

	hashed, err := h.Hash(ctx, "  Secret99  ")
	require.NoError(t, err)
	assert.True(t, h.Verify(ctx, "Secret99", hashed))
}

func TestHasher_HashRejectsEmpty(t *testing.T) {
	h := newTestHasher(t, bcrypt.MinCost)

	for _, pw := range []string{"", "   ", "\n\t"} {
		_, err := h.Hash(context.Background(), pw)
		assert.ErrorIs(t, err, ErrInvalidPassword)
	}
}

func TestHasher_DefaultCost(t *testing.T) {
	h, err := NewHasher(0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCost, h.Cost())

	_, err = NewHasher(bcrypt.MaxCost+1, 1)
	assert.Error(t, err)
}

func TestHasher_VerifyMalformedHashes(t *testing.T) {
	h := newTestHasher(t, bcrypt.MinCost)
	ctx := context.Background()

	cases := map[string]string{
		"empty":        "",
		"plaintext":    "Abcdefg1",
		"wrong prefix": "$argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHQ$RdescudvJCsgt3ub+b+dWRWJTmaaJObG",
		"truncated":    "$2a$10$q7rl3eIBhd63SJ",
		"dummy itself": string(h.dummyHash[:20]),
		"bad salt":     "$2a$10$" + strings.Repeat("*", 53),
		"trailing":     string(h.dummyHash) + "x",
		"cost range":   "$2a$99$" + strings.Repeat("a", 53),
	}
	for name, hashed := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, h.Verify(ctx, "Abcdefg1", hashed))
		})
	}
}

func TestWellFormed(t *testing.T) {
	h := newTestHasher(t, bcrypt.MinCost)
	stored, err := h.Hash(context.Background(), "Abcdefg1")
	require.NoError(t, err)

	assert.True(t, wellFormed(stored))
	assert.True(t, wellFormed(string(h.dummyHash)))
	assert.False(t, wellFormed("$2a$10$"+strings.Repeat("*", 53)))
	assert.False(t, wellFormed("$2a$10$"+strings.Repeat("a", 52)+"!"))
	assert.False(t, wellFormed(stored[:len(stored)-1]))
}

func TestHasher_VerifyNeverMatchesDummy(t *testing.T) {
	h := newTestHasher(t, bcrypt.MinCost)

	// The sentinel matches the dummy hash, but the dummy path must still fail.
	assert.False(t, h.Verify(context.Background(), dummyPassword, ""))
}

func TestHasher_LongPasswordsUseFirst72Bytes(t *testing.T) {
	h := newTestHasher(t, bcrypt.MinCost)
	ctx := context.Background()

	long := "Aa1" + strings.Repeat("x", 97)
	hashed, err := h.Hash(ctx, long)
	require.NoError(t, err)

	assert.True(t, h.Verify(ctx, long, hashed))
	assert.True(t, h.Verify(ctx, long[:72]+"different tail", hashed))
	assert.False(t, h.Verify(ctx, long[:71], hashed))
}

func TestHasher_VerifyCancelledContext(t *testing.T) {
	h, err := NewHasher(bcrypt.MinCost, 1)
	require.NoError(t, err)

	hashed, err := h.Hash(context.Background(), "Abcdefg1")
	require.NoError(t, err)

	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, h.Verify(ctx, "Abcdefg1", hashed))

	_, err = h.Hash(ctx, "Abcdefg1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHasher_VerifyTimingIndependentOfHashPresence(t *testing.T) {
	if testing.Short() {
		t.Skip("timing sample skipped in short mode")
	}

	h := newTestHasher(t, DefaultCost)
	ctx := context.Background()

	stored, err := h.Hash(ctx, "Abcdefg1")
	require.NoError(t, err)

	const samples = 6
	measure := func(hashed string) time.Duration {
		var total time.Duration
		for i := 0; i < samples; i++ {
			start := time.Now()
			h.Verify(ctx, "WrongPass1", hashed)
			total += time.Since(start)
		}
		return total / samples
	}

	// warm up
	h.Verify(ctx, "WrongPass1", stored)

	baseline := measure(stored)
	missing := measure("")
	malformed := measure("not-a-hash")
	badSalt := measure("$2a$10$" + strings.Repeat("*", 53))

	for name, d := range map[string]time.Duration{"missing": missing, "malformed": malformed, "bad salt": badSalt} {
		ratio := float64(d) / float64(baseline)
		assert.Greater(t, ratio, 0.5, "%s hash verified too fast: %v vs %v", name, d, baseline)
		assert.Less(t, ratio, 2.0, "%s hash verified too slow: %v vs %v", name, d, baseline)
	}
}
