package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/mintgate/ticket-engine/internal/queue"
)

// ticketIssuedQueue is the durable broker queue issuance facts land
// on.  The external notifier consumes it to send "your ticket is
// ready" emails; the built-in consumer writes an audit log.
const ticketIssuedQueue = "ticket.issued"

// RabbitNotifier publishes issuance facts to RabbitMQ.  It tries to
// be robust and to never panic; any error is logged and returned so
// the caller can ignore it.  A failed notification must not fail the
// mint that already committed.  Messages are marked persistent.
type RabbitNotifier struct {
	url string
}

// NewRabbitNotifier builds a notifier that dials the given AMQP URL
// on each publish.  Mint volume is low enough that connection reuse
// is not worth the reconnect bookkeeping.
func NewRabbitNotifier(url string) *RabbitNotifier {
	return &RabbitNotifier{url: url}
}

// PublishTicketIssued implements Notifier.
func (n *RabbitNotifier) PublishTicketIssued(ctx context.Context, event q.TicketIssuedEvent) error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages
	// survive broker restarts.
	if _, err := ch.QueueDeclare(
		ticketIssuedQueue, // name
		true,              // durable
		false,             // autoDelete
		false,             // exclusive
		false,             // noWait
		nil,               // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                // default exchange
		ticketIssuedQueue, // routing key = queue name
		false,             // mandatory
		false,             // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
