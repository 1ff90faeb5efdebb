package spam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T, now time.Time) *Signer {
	t.Helper()
	signer, err := NewSigner("test-secret")
	require.NoError(t, err)
	signer.now = func() time.Time { return now }
	return signer
}

func TestSigner_IssueValidateRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	signer := newTestSigner(t, now)

	token := signer.issueAt(now.Add(-10 * time.Second))
	ts, ok := signer.Validate(token)
	require.True(t, ok)
	assert.Equal(t, now.Add(-10*time.Second).Unix(), ts)
}

func TestSigner_ValidateRejectsGarbage(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, time.Unix(1700000000, 0))

	for _, token := range []string{"", "not-base64!!!", "YWJjZGVm", "1700000000"} {
		_, ok := signer.Validate(token)
		assert.False(t, ok, "token %q should not validate", token)
	}
}

func TestSigner_ValidateRejectsTampering(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	signer := newTestSigner(t, now)

	token := signer.issueAt(now.Add(-10 * time.Second))
	tampered := []byte(token)
	tampered[len(tampered)-1] ^= 1
	_, ok := signer.Validate(string(tampered))
	assert.False(t, ok)
}

func TestSigner_ValidateRejectsWrongKey(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	signer := newTestSigner(t, now)
	other := newTestSigner(t, now)
	otherSigner, err := NewSigner("different-secret")
	require.NoError(t, err)
	otherSigner.now = other.now

	token := signer.issueAt(now.Add(-10 * time.Second))
	_, ok := otherSigner.Validate(token)
	assert.False(t, ok)
}

func TestSigner_ValidateRejectsFutureAndStale(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	signer := newTestSigner(t, now)

	_, ok := signer.Validate(signer.issueAt(now.Add(5 * time.Second)))
	assert.False(t, ok, "future timestamp must not validate")

	_, ok = signer.Validate(signer.issueAt(now.Add(-2 * time.Hour)))
	assert.False(t, ok, "stale timestamp must not validate")

	// Just inside the window still validates.
	ts, ok := signer.Validate(signer.issueAt(now.Add(-time.Hour + time.Second)))
	require.True(t, ok)
	assert.Equal(t, now.Add(-time.Hour+time.Second).Unix(), ts)
}

func TestSigner_TokensAreOpaque(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	signer := newTestSigner(t, now)

	// Random nonces make equal plaintexts encode differently.
	a := signer.issueAt(now)
	b := signer.issueAt(now)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "1700000000")
}
