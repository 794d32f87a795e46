package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AwardEvent is broadcast whenever a new ledger entry is accepted, so feed
// and notification surfaces can react without coupling to the ledger.
type AwardEvent struct {
	StudentID    uint      `json:"student_id"`
	ActivityKind string    `json:"activity_kind"`
	ActivityID   string    `json:"activity_id"`
	Points       int       `json:"points"`
	NewTotal     int       `json:"new_total"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// AwardPublisher fans award events out to interested consumers. Publication
// is best effort: a failed publish never fails the award.
type AwardPublisher interface {
	PublishAward(ctx context.Context, event AwardEvent)
}

type awardPublisher struct {
	nats        *nats.Conn
	natsSubject string
	redis       *redis.Client
	redisStream string
	logger      zerolog.Logger
}

// NewAwardPublisher constructs the fanout publisher. Either connection may be
// nil; the corresponding channel is skipped.
func NewAwardPublisher(natsConn *nats.Conn, subject string, redisClient *redis.Client, stream string, logger zerolog.Logger) AwardPublisher {
	if subject == "" {
		subject = "ecolearn.awards"
	}
	if stream == "" {
		stream = "ecolearn:awards"
	}

	return &awardPublisher{
		nats:        natsConn,
		natsSubject: subject,
		redis:       redisClient,
		redisStream: stream,
		logger:      logger.With().Str("component", "award_publisher").Logger(),
	}
}

func (p *awardPublisher) PublishAward(ctx context.Context, event AwardEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode award event")
		return
	}

	if p.nats != nil {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			p.logger.Warn().Err(err).Str("subject", p.natsSubject).Msg("failed to publish award event to nats")
		}
	}

	if p.redis != nil {
		err := p.redis.XAdd(ctx, &redis.XAddArgs{
			Stream: p.redisStream,
			Values: map[string]interface{}{"event": string(payload)},
		}).Err()
		if err != nil {
			p.logger.Warn().Err(err).Str("stream", p.redisStream).Msg("failed to append award event to redis stream")
		}
	}
}
