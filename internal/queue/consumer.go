package queue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// webhookTimeout bounds each outbound delivery attempt.
const webhookTimeout = 10 * time.Second

// StartWebhookConsumer connects to RabbitMQ, declares the repair.events
// queue (durable), and starts consuming messages.  Each message is posted
// to the given webhook URL; delivery failures are logged and the message is
// rejected without requeue so a dead webhook cannot build a tight loop.
// The function runs a reconnect loop with backoff and keeps running for the
// life of the process.
func StartWebhookConsumer(webhookURL string) error {
	client := &http.Client{Timeout: webhookTimeout}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			logrus.WithError(err).Warnf("repair-consumer: dial failed; retrying in %s", backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, client, webhookURL); err != nil {
			logrus.WithError(err).Warn("repair-consumer: consume loop ended; reconnecting")
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, client *http.Client, webhookURL string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logrus.WithError(err).Warn("repair-consumer: set QoS failed")
	}

	if _, err := ch.QueueDeclare(repairEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	deliveries, err := ch.Consume(repairEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for d := range deliveries {
		if err := deliver(client, webhookURL, d.Body); err != nil {
			logrus.WithError(err).Warn("repair-consumer: webhook delivery failed")
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func deliver(client *http.Client, webhookURL string, body []byte) error {
	var ev RepairEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	resp, err := client.Post(webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	logrus.WithFields(logrus.Fields{
		"action":    ev.Action,
		"repair_id": ev.RepairID,
		"status":    resp.StatusCode,
	}).Info("repair-consumer: webhook delivered")
	return nil
}
