package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"gatepass-backend/internal/metrics"
	"gatepass-backend/internal/models"
)

// NotificationStore is the persistence surface the dispatcher needs.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	LogMessage(ctx context.Context, m *models.MessageLog) error
}

// Dispatcher fans a workflow event out to its recipients: one in-app
// notification row per recipient, then one outbound delivery attempt walking
// the sender chain in priority order until a sender succeeds. Delivery is
// best effort; a failed dispatch never fails the workflow operation that
// triggered it.
type Dispatcher struct {
	store   NotificationStore
	senders []Sender
	timeout time.Duration
}

func NewDispatcher(store NotificationStore, senders ...Sender) *Dispatcher {
	return &Dispatcher{
		store:   store,
		senders: senders,
		timeout: 30 * time.Second,
	}
}

// DispatchAsync runs Dispatch on its own goroutine with panic recovery and a
// fresh context, so callers can fire it after commit and return immediately.
func (d *Dispatcher) DispatchAsync(event string, gp *models.Gatepass, recipients []models.User) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Notify] Recovered from panic dispatching %s for %s: %v", event, gp.GatepassNumber, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		d.Dispatch(ctx, event, gp, recipients)
	}()
}

func (d *Dispatcher) Dispatch(ctx context.Context, event string, gp *models.Gatepass, recipients []models.User) {
	message := buildMessage(event, gp)

	for i := range recipients {
		recipient := &recipients[i]

		n := &models.Notification{
			UserID:         recipient.ID,
			EventType:      event,
			GatepassID:     gp.ID,
			GatepassNumber: gp.GatepassNumber,
			Message:        message,
		}
		if err := d.store.Create(ctx, n); err != nil {
			log.Printf("[Notify] Failed to store notification for user %d: %v", recipient.ID, err)
		}

		if recipient.Phone != "" {
			d.sendOutbound(ctx, event, recipient, message)
		}
	}
}

// sendOutbound walks the sender chain until one delivery succeeds, logging
// every attempt to message_logs.
func (d *Dispatcher) sendOutbound(ctx context.Context, event string, recipient *models.User, message string) {
	for _, sender := range d.senders {
		err := sender.Send(recipient.Phone, message)

		entry := &models.MessageLog{
			UserID:    recipient.ID,
			Phone:     recipient.Phone,
			Channel:   sender.Channel(),
			EventType: event,
			Message:   message,
			Status:    models.MessageStatusSent,
		}
		if err != nil {
			entry.Status = models.MessageStatusFailed
			entry.ErrorMessage = err.Error()
		}
		metrics.MessagesSentTotal.WithLabelValues(sender.Channel(), entry.Status).Inc()
		if logErr := d.store.LogMessage(ctx, entry); logErr != nil {
			log.Printf("[Notify] Failed to log %s delivery for user %d: %v", sender.Channel(), recipient.ID, logErr)
		}

		if err == nil {
			return
		}
		log.Printf("[Notify] %s delivery to user %d failed, trying next channel: %v", sender.Channel(), recipient.ID, err)
	}
}

func buildMessage(event string, gp *models.Gatepass) string {
	switch event {
	case models.EventNewGatepass:
		return fmt.Sprintf("New gatepass %s requested from %s to %s, awaiting approval.",
			gp.GatepassNumber, gp.FromLocation, gp.ToLocation)
	case models.EventGatepassApproved:
		return fmt.Sprintf("Gatepass %s has been approved and is awaiting security verification.",
			gp.GatepassNumber)
	case models.EventGatepassVerified:
		return fmt.Sprintf("Gatepass %s has been verified by security. Movement is cleared.",
			gp.GatepassNumber)
	case models.EventGatepassDeclined:
		reason := ""
		if gp.DeclineReason != nil {
			reason = " Reason: " + *gp.DeclineReason
		}
		return fmt.Sprintf("Gatepass %s has been declined.%s", gp.GatepassNumber, reason)
	default:
		return fmt.Sprintf("Update on gatepass %s.", gp.GatepassNumber)
	}
}
