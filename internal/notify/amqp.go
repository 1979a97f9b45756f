// Package notify publishes job summaries to an AMQP broker when one is
// configured. The broker is an optional collaborator; nothing in the service
// requires it.
package notify

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the interface the jobs publish through.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
	Close() error
}

// AMQPPublisher implements Publisher over a live broker connection.
type AMQPPublisher struct {
	conn *amqp.Connection
}

var _ Publisher = (*AMQPPublisher)(nil)

func Dial(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &AMQPPublisher{conn: conn}, nil
}

// Publish declares the durable queue and sends one JSON message to it.
func (p *AMQPPublisher) Publish(ctx context.Context, queue string, body []byte) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key (queue name)
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}
