package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/services"
)

// errSkipMessage marks events that intentionally produce no email.
var errSkipMessage = errors.New("mail dispatcher: no template for event")

// DispatcherDeps bundles the collaborators for the order event mail dispatcher.
type DispatcherDeps struct {
	Subscription *pubsub.Subscription
	Sender       Sender
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

// Dispatcher consumes order lifecycle events and sends transactional email.
// Rendering failures and events without a recipient are acked and logged;
// delivery failures are nacked so Pub/Sub redelivers.
type Dispatcher struct {
	sub    *pubsub.Subscription
	sender Sender
	logger func(context.Context, string, map[string]any)
}

// NewDispatcher validates deps and returns a dispatcher ready to Run.
func NewDispatcher(deps DispatcherDeps) (*Dispatcher, error) {
	if deps.Subscription == nil {
		return nil, errors.New("mail dispatcher: subscription is required")
	}
	if deps.Sender == nil {
		return nil, errors.New("mail dispatcher: sender is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &Dispatcher{
		sub:    deps.Subscription,
		sender: deps.Sender,
		logger: logger,
	}, nil
}

// Run blocks consuming the subscription until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := d.Handle(ctx, msg.Data); err != nil {
			var deliveryErr *DeliveryError
			if errors.As(err, &deliveryErr) {
				d.logger(ctx, "mail.dispatch.delivery_failed", map[string]any{
					"error": err.Error(),
				})
				msg.Nack()
				return
			}
			// Malformed or unroutable payloads will never succeed; drop them.
			d.logger(ctx, "mail.dispatch.dropped", map[string]any{
				"error": err.Error(),
			})
		}
		msg.Ack()
	})
}

// DeliveryError wraps transient sender failures so Run can nack for retry.
type DeliveryError struct {
	err error
}

func (e *DeliveryError) Error() string { return e.err.Error() }
func (e *DeliveryError) Unwrap() error { return e.err }

// Handle decodes a single event payload and sends the matching email.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) error {
	var event services.OrderEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("decode order event: %w", err)
	}

	email := strings.TrimSpace(event.Email)
	if email == "" {
		return fmt.Errorf("order event %s for %s has no recipient", event.Type, event.OrderID)
	}

	msg, err := renderOrderEvent(event)
	if err != nil {
		if errors.Is(err, errSkipMessage) {
			return nil
		}
		return err
	}

	if err := d.sender.Send(ctx, email, msg); err != nil {
		return &DeliveryError{err: err}
	}
	d.logger(ctx, "mail.dispatch.sent", map[string]any{
		"event":   string(event.Type),
		"orderId": event.OrderID,
	})
	return nil
}

func renderOrderEvent(event services.OrderEvent) (Message, error) {
	data := OrderEmailData{
		OrderNumber:  event.OrderNumber,
		Status:       string(event.Status),
		Reason:       event.Reason,
		RefundAmount: event.RefundAmount,
		Currency:     event.Currency,
	}

	switch event.Type {
	case services.OrderEventCreated, services.OrderEventConfirmed:
		return OrderConfirmation(data), nil
	case services.OrderEventStatusChanged:
		return OrderStatusUpdate(data), nil
	case services.OrderEventCancelled, services.OrderEventFailed:
		return OrderCancellation(data), nil
	case services.OrderEventReturnRequested:
		return ReturnSubmitted(data), nil
	case services.OrderEventReturnApproved:
		return ReturnApproved(data), nil
	case services.OrderEventReturnRejected:
		return ReturnRejected(data), nil
	case services.OrderEventReturnCompleted:
		return OrderStatusUpdate(data), nil
	case services.OrderEventRefundProcessed:
		return RefundProcessed(data), nil
	case services.OrderEventReturnCancelled:
		return Message{}, errSkipMessage
	default:
		return Message{}, fmt.Errorf("%w: %s", errSkipMessage, event.Type)
	}
}

// OTPMailer sends one-time codes synchronously. It satisfies the auth
// service's mailer dependency.
type OTPMailer struct {
	sender Sender
	ttl    time.Duration
}

// NewOTPMailer wraps a Sender for OTP delivery. ttl is shown in the email copy.
func NewOTPMailer(sender Sender, ttl time.Duration) (*OTPMailer, error) {
	if sender == nil {
		return nil, errors.New("otp mailer: sender is required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &OTPMailer{sender: sender, ttl: ttl}, nil
}

func (m *OTPMailer) SendOTP(ctx context.Context, email string, code string, purpose domain.OTPPurpose) error {
	return m.sender.Send(ctx, email, OTPVerificationEmail(code, string(purpose), m.ttl))
}
