// Package spam implements the anti-abuse admission pipeline run on every
// inbound comment submission, plus the signed-timestamp and rate-counter
// primitives it builds on. The pipeline decides; it never persists.
package spam

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"murmur/internal/observability"
)

// Rejection kinds. Stable identifiers for the HTTP layer; the messages stay
// deliberately generic so bots learn nothing about which check caught them.
const (
	KindInvalidSubmission = "invalid_submission"
	KindTooFast           = "too_fast"
	KindTooManyLinks      = "too_many_links"
	KindBlockedContent    = "blocked_content"
	KindRateLimited       = "rate_limited"
)

// Rejection is a structured pipeline failure.
type Rejection struct {
	Kind    string
	Message string
}

// Submission describes one inbound comment as seen by the pipeline. The HTTP
// layer fills it in; identity fields it does not have stay empty.
type Submission struct {
	Body       string
	Honeypot   string
	Timestamp  string
	RemoteAddr string
	UserAgent  string
}

// Config carries the tunable limits. The zero value of any field falls back
// to the documented default.
type Config struct {
	// MinTimeSeconds is the minimum age of a valid signed timestamp.
	MinTimeSeconds int
	// MaxLinks is the maximum number of http(s):// occurrences in the body.
	MaxLinks int
	// BlockedWords holds case-insensitive substrings, one per entry.
	// Multi-word phrases match as written. Empty admits everything.
	BlockedWords []string
	// RateLimitPerMinute caps submissions per anonymized source per minute.
	RateLimitPerMinute int
}

const (
	defaultMinTimeSeconds     = 3
	defaultMaxLinks           = 3
	defaultRateLimitPerMinute = 5
)

func (c Config) minTime() int {
	if c.MinTimeSeconds <= 0 {
		return defaultMinTimeSeconds
	}
	return c.MinTimeSeconds
}

func (c Config) maxLinks() int {
	if c.MaxLinks <= 0 {
		return defaultMaxLinks
	}
	return c.MaxLinks
}

func (c Config) rateLimit() int {
	if c.RateLimitPerMinute <= 0 {
		return defaultRateLimitPerMinute
	}
	return c.RateLimitPerMinute
}

// ParseBlockedWords splits the configured newline-separated list into
// matchable entries, dropping blanks.
func ParseBlockedWords(raw string) []string {
	var words []string
	for _, line := range strings.Split(raw, "\n") {
		if w := strings.TrimSpace(line); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// Checker runs the ordered admission checks. All checks must pass; the first
// failure wins and is returned as a structured Rejection.
type Checker struct {
	signer  *Signer
	counter RateCounter
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewChecker builds a pipeline around a timestamp signer and a rate counter.
func NewChecker(signer *Signer, counter RateCounter, cfg Config, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		signer:  signer,
		counter: counter,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Check admits or rejects a submission. A nil result means all checks
// passed; the caller is then free to persist.
func (ch *Checker) Check(ctx context.Context, sub Submission) *Rejection {
	checks := []func(context.Context, Submission) *Rejection{
		ch.checkHoneypot,
		ch.checkTiming,
		ch.checkLinkCount,
		ch.checkBlockedWords,
		ch.checkRateLimit,
	}
	for _, check := range checks {
		if rej := check(ctx, sub); rej != nil {
			observability.SpamRejections.WithLabelValues(rej.Kind).Inc()
			return rej
		}
	}
	return nil
}

// checkHoneypot rejects any submission that filled the hidden field.
func (ch *Checker) checkHoneypot(_ context.Context, sub Submission) *Rejection {
	if sub.Honeypot != "" {
		return &Rejection{Kind: KindInvalidSubmission, Message: "Invalid submission."}
	}
	return nil
}

// checkTiming rejects a submission whose valid signed timestamp is younger
// than the configured minimum. A missing or undecryptable timestamp is "no
// signal" and passes; only a provably fast submission fails.
func (ch *Checker) checkTiming(_ context.Context, sub Submission) *Rejection {
	if sub.Timestamp == "" {
		return nil
	}
	ts, ok := ch.signer.Validate(sub.Timestamp)
	if !ok {
		return nil
	}
	if ch.now().Unix()-ts < int64(ch.cfg.minTime()) {
		return &Rejection{Kind: KindTooFast, Message: "Please wait a moment before submitting."}
	}
	return nil
}

func (ch *Checker) checkLinkCount(_ context.Context, sub Submission) *Rejection {
	links := strings.Count(sub.Body, "http://") + strings.Count(sub.Body, "https://")
	if links > ch.cfg.maxLinks() {
		return &Rejection{Kind: KindTooManyLinks, Message: "Too many links in comment."}
	}
	return nil
}

func (ch *Checker) checkBlockedWords(_ context.Context, sub Submission) *Rejection {
	if len(ch.cfg.BlockedWords) == 0 {
		return nil
	}
	body := strings.ToLower(sub.Body)
	for _, word := range ch.cfg.BlockedWords {
		if strings.Contains(body, strings.ToLower(word)) {
			return &Rejection{Kind: KindBlockedContent, Message: "Your comment contains blocked content."}
		}
	}
	return nil
}

// checkRateLimit buckets by anonymized source address and the current
// minute. Distinct sources never block each other. If the counter store is
// unavailable the check fails open, matching the rest of the pipeline's
// default-allow posture.
func (ch *Checker) checkRateLimit(ctx context.Context, sub Submission) *Rejection {
	source := AnonymizeIP(sub.RemoteAddr)
	if source == "" {
		source = "unknown"
	}

	cnt, err := ch.counter.Increment(ctx, rateLimitKey(source, ch.now()), time.Minute)
	if err != nil {
		ch.logger.Warn("rate counter unavailable, failing open", "error", err)
		return nil
	}
	if cnt > int64(ch.cfg.rateLimit()) {
		return &Rejection{Kind: KindRateLimited, Message: "Too many comments. Please wait a minute."}
	}
	return nil
}
