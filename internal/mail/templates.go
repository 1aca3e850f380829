package mail

import (
	"fmt"
	"html"
	"strings"
	"time"
)

const brandName = "GlowCart"

// Message is a rendered email ready to hand to a Sender.
type Message struct {
	Subject string
	HTML    string
}

// OrderEmailData carries the order fields the lifecycle templates render.
type OrderEmailData struct {
	OrderNumber  string
	CustomerName string
	Status       string
	Reason       string
	RefundAmount int64
	Currency     string
}

// WelcomeEmail greets a newly provisioned account.
func WelcomeEmail(name string) Message {
	return Message{
		Subject: fmt.Sprintf("Welcome to %s", brandName),
		HTML: wrapBody(
			greeting(name),
			fmt.Sprintf("<p>Your %s account is ready. Browse our latest arrivals and build your routine.</p>", brandName),
		),
	}
}

// OrderConfirmation acknowledges a paid order.
func OrderConfirmation(data OrderEmailData) Message {
	return Message{
		Subject: fmt.Sprintf("Order %s confirmed", data.OrderNumber),
		HTML: wrapBody(
			greeting(data.CustomerName),
			fmt.Sprintf("<p>Thanks for your order! Order <strong>%s</strong> is confirmed and being prepared.</p>", html.EscapeString(data.OrderNumber)),
			"<p>We will email you again when it ships.</p>",
		),
	}
}

// OrderStatusUpdate notifies the customer of a fulfilment transition.
func OrderStatusUpdate(data OrderEmailData) Message {
	return Message{
		Subject: fmt.Sprintf("Order %s is now %s", data.OrderNumber, data.Status),
		HTML: wrapBody(
			greeting(data.CustomerName),
			fmt.Sprintf("<p>Your order <strong>%s</strong> is now <strong>%s</strong>.</p>",
				html.EscapeString(data.OrderNumber), html.EscapeString(data.Status)),
		),
	}
}

// OrderCancellation confirms an order was cancelled.
func OrderCancellation(data OrderEmailData) Message {
	body := []string{
		greeting(data.CustomerName),
		fmt.Sprintf("<p>Your order <strong>%s</strong> has been cancelled.</p>", html.EscapeString(data.OrderNumber)),
	}
	if reason := strings.TrimSpace(data.Reason); reason != "" {
		body = append(body, fmt.Sprintf("<p>Reason: %s</p>", html.EscapeString(reason)))
	}
	body = append(body, "<p>If you were charged, the refund will reach your original payment method within 5-7 business days.</p>")
	return Message{
		Subject: fmt.Sprintf("Order %s cancelled", data.OrderNumber),
		HTML:    wrapBody(body...),
	}
}

// ReturnSubmitted acknowledges a return request.
func ReturnSubmitted(data OrderEmailData) Message {
	return Message{
		Subject: fmt.Sprintf("Return request received for order %s", data.OrderNumber),
		HTML: wrapBody(
			greeting(data.CustomerName),
			fmt.Sprintf("<p>We received your return request for order <strong>%s</strong>. Our team will review it shortly.</p>",
				html.EscapeString(data.OrderNumber)),
		),
	}
}

// ReturnApproved tells the customer to ship the items back.
func ReturnApproved(data OrderEmailData) Message {
	return Message{
		Subject: fmt.Sprintf("Return approved for order %s", data.OrderNumber),
		HTML: wrapBody(
			greeting(data.CustomerName),
			fmt.Sprintf("<p>Your return for order <strong>%s</strong> has been approved.</p>", html.EscapeString(data.OrderNumber)),
			"<p>Pack the items in their original packaging. A pickup will be arranged within 2 business days.</p>",
		),
	}
}

// ReturnRejected explains why a return request was declined.
func ReturnRejected(data OrderEmailData) Message {
	body := []string{
		greeting(data.CustomerName),
		fmt.Sprintf("<p>We could not approve the return request for order <strong>%s</strong>.</p>", html.EscapeString(data.OrderNumber)),
	}
	if reason := strings.TrimSpace(data.Reason); reason != "" {
		body = append(body, fmt.Sprintf("<p>Reason: %s</p>", html.EscapeString(reason)))
	}
	return Message{
		Subject: fmt.Sprintf("Return request for order %s", data.OrderNumber),
		HTML:    wrapBody(body...),
	}
}

// RefundProcessed confirms money is on its way back.
func RefundProcessed(data OrderEmailData) Message {
	amount := FormatMinorUnits(data.Currency, data.RefundAmount)
	return Message{
		Subject: fmt.Sprintf("Refund processed for order %s", data.OrderNumber),
		HTML: wrapBody(
			greeting(data.CustomerName),
			fmt.Sprintf("<p>A refund of <strong>%s</strong> for order <strong>%s</strong> has been processed.</p>",
				amount, html.EscapeString(data.OrderNumber)),
			"<p>It should reach your original payment method within 5-7 business days.</p>",
		),
	}
}

// OTPVerificationEmail carries a one-time code. The purpose selects the wording.
func OTPVerificationEmail(code string, purpose string, ttl time.Duration) Message {
	action := "sign in"
	if strings.Contains(strings.ToLower(purpose), "reset") {
		action = "reset your password"
	}
	minutes := int(ttl.Minutes())
	if minutes <= 0 {
		minutes = 10
	}
	return Message{
		Subject: fmt.Sprintf("Your %s verification code", brandName),
		HTML: wrapBody(
			fmt.Sprintf("<p>Use this code to %s:</p>", action),
			fmt.Sprintf(`<p style="font-size:28px;letter-spacing:6px;font-weight:bold">%s</p>`, html.EscapeString(code)),
			fmt.Sprintf("<p>The code expires in %d minutes. If you did not request it, ignore this email.</p>", minutes),
		),
	}
}

// NewsletterWelcome confirms a newsletter subscription.
func NewsletterWelcome(email string) Message {
	return Message{
		Subject: fmt.Sprintf("You're on the %s list", brandName),
		HTML: wrapBody(
			fmt.Sprintf("<p>Thanks for subscribing with <strong>%s</strong>.</p>", html.EscapeString(email)),
			"<p>Expect launches, routines, and subscriber-only offers. You can unsubscribe at any time.</p>",
		),
	}
}

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "<p>Hi,</p>"
	}
	return fmt.Sprintf("<p>Hi %s,</p>", html.EscapeString(name))
}

func wrapBody(paragraphs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body style="font-family:Helvetica,Arial,sans-serif;color:#1f1f1f">`)
	for _, p := range paragraphs {
		b.WriteString(p)
	}
	fmt.Fprintf(&b, `<p style="color:#8a8a8a;font-size:12px">%s · This is an automated message.</p>`, brandName)
	b.WriteString("</body></html>")
	return b.String()
}
