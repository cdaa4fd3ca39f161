package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes movie events to RabbitMQ.  Each publish opens a
// short-lived connection; movie events are rare (one per user action) so
// there is no long-lived channel to babysit.  Errors are logged and
// returned so the caller can choose to ignore them.
type Publisher struct {
	url    string
	logger hclog.Logger
}

// NewPublisher returns a Publisher for url, or nil when url is empty.
func NewPublisher(url string, logger hclog.Logger) *Publisher {
	if url == "" {
		return nil
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Publisher{url: url, logger: logger}
}

// Publish sends ev to the movie.events queue.  EventID and OccurredAt are
// filled in when empty.  Messages are marked as persistent.
func (p *Publisher) Publish(ctx context.Context, ev MovieEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(3 * time.Second)})
	if err != nil {
		p.logger.Warn("rabbitmq dial failed", "error", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn("rabbitmq channel open failed", "error", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		MovieEventsQueue, // name
		true,             // durable
		false,            // autoDelete
		false,            // exclusive
		false,            // noWait
		nil,              // args
	); err != nil {
		p.logger.Warn("rabbitmq queue declare failed", "error", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    ev.EventID,
		Type:         ev.Type,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",               // default exchange
		MovieEventsQueue, // routing key = queue name
		false,            // mandatory
		false,            // immediate
		pub,
	); err != nil {
		p.logger.Warn("rabbitmq publish failed", "type", ev.Type, "error", err)
		return err
	}
	p.logger.Debug("movie event published", "type", ev.Type, "movie_id", ev.MovieID)
	return nil
}
