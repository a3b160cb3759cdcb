package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	portssvc "github.com/mzwallet/mz_wallet_backend/internal/core/ports/services"
	"github.com/mzwallet/mz_wallet_backend/internal/middleware"
)

// LogCodeSender writes the code to the application log instead of a real
// delivery channel. Used in development and as the fallback when no broker
// is configured.
type LogCodeSender struct{}

// NewLogCodeSender creates the log-only delivery capability.
func NewLogCodeSender() portssvc.CodeSender {
	return &LogCodeSender{}
}

func (s *LogCodeSender) Send(ctx context.Context, phone, code string) error {
	middleware.GetLoggerFromCtx(ctx).Info("OTP code (log delivery)", slog.String("phone", phone), slog.String("code", code))
	return nil
}

// otpMessage is the payload published for downstream SMS workers.
type otpMessage struct {
	Phone    string    `json:"phone"`
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issuedAt"`
}

// AMQPCodeSender publishes OTP codes to a fanout exchange consumed by the
// SMS delivery workers. Delivery is fire-and-forget from the engine's point
// of view: publish failures are reported to the caller, which logs and moves
// on.
type AMQPCodeSender struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPCodeSender connects to the broker and declares the exchange.
func NewAMQPCodeSender(amqpURL, exchange string) (*AMQPCodeSender, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &AMQPCodeSender{conn: conn, channel: ch, exchange: exchange}, nil
}

var _ portssvc.CodeSender = (*AMQPCodeSender)(nil)

func (s *AMQPCodeSender) Send(ctx context.Context, phone, code string) error {
	body, err := json.Marshal(otpMessage{Phone: phone, Code: code, IssuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal otp message: %w", err)
	}
	err = s.channel.PublishWithContext(ctx, s.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish otp message: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (s *AMQPCodeSender) Close() error {
	if err := s.channel.Close(); err != nil {
		return err
	}
	return s.conn.Close()
}
