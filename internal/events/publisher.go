package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionFinishedChannel is the redis channel finished sessions are announced on.
const SessionFinishedChannel = "interview_session_finished"

type SessionFinishedEvent struct {
	SessionID     string    `json:"session_id"`
	UserID        string    `json:"user_id"`
	Position      string    `json:"position"`
	Round         string    `json:"round"`
	TotalScore    *float64  `json:"total_score"`
	QuestionCount int       `json:"question_count"`
	Abandoned     bool      `json:"abandoned,omitempty"`
	FinishedAt    time.Time `json:"finished_at"`
}

type Publisher interface {
	PublishSessionFinished(ctx context.Context, event SessionFinishedEvent) error
}

type RedisPublisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisPublisher(rdb *redis.Client, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, logger: logger}
}

func (p *RedisPublisher) PublishSessionFinished(ctx context.Context, event SessionFinishedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, SessionFinishedChannel, payload).Err(); err != nil {
		return err
	}
	p.logger.Debug("Published session finished event", zap.String("session_id", event.SessionID))
	return nil
}

// NopPublisher drops events; used when no redis is configured.
type NopPublisher struct{}

func (NopPublisher) PublishSessionFinished(context.Context, SessionFinishedEvent) error { return nil }
