package crm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"

	"github.com/sells-group/card-ingest/internal/model"
)

// Publisher is the subset of *amqp.Channel used for delivery.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPForwarder publishes stored leads as persistent JSON messages to a
// RabbitMQ exchange.
type AMQPForwarder struct {
	pub        Publisher
	exchange   string
	routingKey string
}

// NewAMQPForwarder creates a forwarder publishing to exchange with routingKey.
func NewAMQPForwarder(pub Publisher, exchange, routingKey string) *AMQPForwarder {
	return &AMQPForwarder{pub: pub, exchange: exchange, routingKey: routingKey}
}

// Target implements Forwarder.
func (f *AMQPForwarder) Target() string { return "amqp" }

// Forward implements Forwarder.
func (f *AMQPForwarder) Forward(ctx context.Context, lead *model.StoredLead) (*Ack, error) {
	body, err := json.Marshal(lead)
	if err != nil {
		return nil, &SyncError{Target: f.Target(), Err: eris.Wrap(err, "crm: marshal lead")}
	}
	return deliver(ctx, f.Target(), func(ctx context.Context) (*Ack, error) {
		msgID := uuid.NewString()
		err := f.pub.PublishWithContext(ctx, f.exchange, f.routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msgID,
			Timestamp:    time.Now().UTC(),
			Type:         "lead.stored",
			Body:         body,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "crm: publish to %s", f.exchange)
		}
		return &Ack{RemoteID: msgID}, nil
	})
}

// AMQPChannel is an open broker connection with a declared exchange.
type AMQPChannel struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

// DialAMQP connects to the broker and declares a durable direct exchange.
func DialAMQP(url, exchange string) (*AMQPChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, eris.Wrap(err, "crm: amqp dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "crm: amqp channel")
	}
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		conn.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "crm: declare exchange %s", exchange)
	}
	return &AMQPChannel{Conn: conn, Ch: ch}, nil
}

// Close closes the channel and the connection.
func (a *AMQPChannel) Close() error {
	if err := a.Ch.Close(); err != nil {
		a.Conn.Close() //nolint:errcheck
		return eris.Wrap(err, "crm: close amqp channel")
	}
	return eris.Wrap(a.Conn.Close(), "crm: close amqp connection")
}
