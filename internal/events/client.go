package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	applog "expensebot/internal/log"
)

type Client struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
	log      *applog.Logger
}

func NewClient(url, exchange, queue string, logger *applog.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		queue:    queue,
		log:      logger.WithComponent(applog.ComponentEvents),
	}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// Routing key matches the queue name on a direct exchange.
	if err := c.channel.QueueBind(c.queue, c.queue, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishExpenseLogged sends one persistent event.
func (c *Client) PublishExpenseLogged(ctx context.Context, ev ExpenseLogged) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchange, c.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	c.log.InfoContext(ctx, "published expense event",
		applog.FieldUserID, ev.UserID,
		applog.FieldSheetID, ev.SheetID,
		applog.FieldExchange, c.exchange,
		applog.FieldQueue, c.queue)
	return nil
}

// ConsumeExpenseLogged blocks delivering events to handler. Events whose
// payload does not parse are dropped; handler errors requeue the delivery.
func (c *Client) ConsumeExpenseLogged(ctx context.Context, handler func(ExpenseLogged) error) error {
	msgs, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.log.InfoContext(ctx, "consuming expense events", applog.FieldQueue, c.queue)

	for {
		select {
		case <-ctx.Done():
			c.log.InfoContext(ctx, "stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			ev, err := ExpenseLoggedFromJSON(delivery.Body)
			if err != nil {
				c.log.ErrorContext(ctx, "unmarshaling event", applog.FieldError, err)
				delivery.Nack(false, false)
				continue
			}
			if err := handler(ev); err != nil {
				c.log.ErrorContext(ctx, "handling event",
					applog.FieldError, err, applog.FieldUserID, ev.UserID)
				delivery.Nack(false, true)
				continue
			}
			delivery.Ack(false)
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
