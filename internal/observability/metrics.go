package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// SpamRejections counts submissions declined by the anti-abuse pipeline,
	// labeled with the rejection kind.
	SpamRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_spam_rejections_total",
		Help: "Total number of comment submissions rejected by the spam pipeline",
	}, []string{"kind"})

	// CommentsCreated counts accepted comments by initial status.
	CommentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_comments_created_total",
		Help: "Total number of comments accepted, by initial status",
	}, []string{"status"})

	// ModerationActions counts status transitions by action and actor
	// (admin, author, email token).
	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_moderation_actions_total",
		Help: "Total number of moderation actions by action and actor",
	}, []string{"action", "actor"})
)
