package spam

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"
)

// maxTimestampAge bounds how old a signed timestamp may be before it is
// ignored. Older tokens might be replayed from a stale form.
const maxTimestampAge = time.Hour

// Signer issues and validates tamper-evident signed timestamps proving when
// a comment form was rendered. Tokens are AES-256-GCM encrypted unix times;
// rotating the secret invalidates outstanding tokens, which is acceptable
// because they are short-lived.
type Signer struct {
	aead cipher.AEAD
	now  func() time.Time
}

// NewSigner derives the encryption key from the application secret.
func NewSigner(secret string) (*Signer, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Signer{aead: aead, now: time.Now}, nil
}

// Issue returns an opaque token encoding the current time.
func (s *Signer) Issue() string {
	return s.issueAt(s.now())
}

func (s *Signer) issueAt(t time.Time) string {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		// rand.Read only fails if the OS entropy source is broken.
		panic(err)
	}
	plaintext := []byte(strconv.FormatInt(t.Unix(), 10))
	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed)
}

// Validate decrypts a token and returns the encoded unix time. It fails
// closed: a malformed, tampered, future-dated or too-old token yields
// (0, false). Callers treat that as "no timing signal", not as a rejection.
func (s *Signer) Validate(token string) (int64, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return 0, false
	}
	nonce, sealed := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return 0, false
	}
	ts, err := strconv.ParseInt(string(plaintext), 10, 64)
	if err != nil {
		return 0, false
	}

	now := s.now().Unix()
	if ts > now || ts <= now-int64(maxTimestampAge.Seconds()) {
		return 0, false
	}
	return ts, true
}
