package streaming

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

// LogPublisher publishes events as structured log lines. It is the
// default Publisher until a real broker (NATS, SQS, ...) is wired in.
type LogPublisher struct {
	logger *log.Logger
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: log.Default()}
}

type event struct {
	ID        string      `json:"id"`
	Topic     string      `json:"topic"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
}

func (p *LogPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	e := event{
		ID:        uuid.NewString(),
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now(),
		Source:    "delivery-core",
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	p.logger.Printf("[STREAMING] PUBLISH %s: %s", topic, string(data))
	return nil
}

func (p *LogPublisher) Close() error {
	p.logger.Println("[STREAMING] closed LogPublisher")
	return nil
}
