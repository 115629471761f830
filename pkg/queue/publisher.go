package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"live-classroom/config"
	"live-classroom/dto"
)

// Exchange topology matches what the transcode worker declares on its side.
const (
	transcodeExchange   = "transcoding_exchange"
	transcodeRoutingKey = "transcoding.request"
)

type Publisher interface {
	PublishTranscodeJob(ctx context.Context, message dto.TranscodeJobMessage) error
}

type publisher struct {
	conn *amqp.Connection
	kind string
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) Publisher {
	kind := cfg.Kind
	if kind == "" {
		kind = "topic"
	}
	return &publisher{conn: conn, kind: kind}
}

func (p *publisher) PublishTranscodeJob(ctx context.Context, message dto.TranscodeJobMessage) error {
	if p.conn == nil {
		return errors.New("queue: not connected")
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(transcodeExchange, p.kind, true, false, false, false, nil)
	if err != nil {
		return err
	}

	body, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, transcodeExchange, transcodeRoutingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
}
