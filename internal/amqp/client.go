package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

// Handlers dispatches consumed deliveries by message type.
type Handlers struct {
	OnContributionApplied func(*ContributionAppliedMessage) error
	OnGoalCompleted       func(*GoalCompletedMessage) error
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Bind queue to exchange
	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishContributionApplied publishes a contribution event.
func (c *Client) PublishContributionApplied(ctx context.Context, msg *ContributionAppliedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, TypeContributionApplied, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published contribution event",
		"contribution_id", msg.ContributionID,
		"goal_id", msg.GoalID,
		"amount_cents", msg.AmountCents,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// PublishGoalCompleted publishes a goal completion event.
func (c *Client) PublishGoalCompleted(ctx context.Context, msg *GoalCompletedMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, TypeGoalCompleted, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published goal completed event",
		"goal_id", msg.GoalID,
		"goal_name", msg.GoalName,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

func (c *Client) publish(ctx context.Context, msgType string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Type:         msgType,
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Consume consumes event messages until the context is cancelled,
// dispatching each delivery to the handler matching its type.
func (c *Client) Consume(ctx context.Context, handlers Handlers) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming contribution events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			var handlerErr error
			switch delivery.Type {
			case TypeContributionApplied:
				msg, err := ContributionAppliedFromJSON(delivery.Body)
				if err != nil {
					slog.ErrorContext(ctx, "Failed to unmarshal contribution event", "error", err)
					delivery.Nack(false, false) // reject and don't requeue
					continue
				}
				if handlers.OnContributionApplied != nil {
					handlerErr = handlers.OnContributionApplied(msg)
				}
			case TypeGoalCompleted:
				msg, err := GoalCompletedFromJSON(delivery.Body)
				if err != nil {
					slog.ErrorContext(ctx, "Failed to unmarshal goal completed event", "error", err)
					delivery.Nack(false, false)
					continue
				}
				if handlers.OnGoalCompleted != nil {
					handlerErr = handlers.OnGoalCompleted(msg)
				}
			default:
				slog.WarnContext(ctx, "Unknown message type, dropping", "type", delivery.Type)
				delivery.Nack(false, false)
				continue
			}

			if handlerErr != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", handlerErr,
					"type", delivery.Type)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false) // acknowledge successful processing
		}
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
