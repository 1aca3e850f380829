package mail

import (
	"strings"
	"testing"
	"time"
)

func TestFormatMinorUnits(t *testing.T) {
	cases := []struct {
		currency string
		amount   int64
		want     string
	}{
		{"INR", 238820, "2,388.20"},
		{"USD", 99, "0.99"},
		{"USD", -1500, "15.00"},
		{"JPY", 1200, "1,200"},
	}
	for _, tc := range cases {
		got := FormatMinorUnits(tc.currency, tc.amount)
		if !strings.Contains(got, tc.want) {
			t.Fatalf("%s %d: expected %q in %q", tc.currency, tc.amount, tc.want, got)
		}
		if tc.amount < 0 && !strings.HasPrefix(got, "-") {
			t.Fatalf("expected negative sign, got %q", got)
		}
	}
}

func TestFormatMinorUnitsUnknownCurrency(t *testing.T) {
	if got := FormatMinorUnits("XXQ", 500); got != "XXQ 500" {
		t.Fatalf("expected raw fallback, got %q", got)
	}
}

func TestOrderConfirmationEscapesOrderNumber(t *testing.T) {
	msg := OrderConfirmation(OrderEmailData{
		OrderNumber:  `GC-2026-000123<script>`,
		CustomerName: "Asha",
	})

	if !strings.Contains(msg.Subject, "GC-2026-000123") {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if strings.Contains(msg.HTML, "<script>") {
		t.Fatalf("expected escaped html, got %q", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "Hi Asha,") {
		t.Fatalf("expected greeting, got %q", msg.HTML)
	}
}

func TestRefundProcessedFormatsAmount(t *testing.T) {
	msg := RefundProcessed(OrderEmailData{
		OrderNumber:  "GC-2026-000123",
		RefundAmount: 238820,
		Currency:     "INR",
	})

	if !strings.Contains(msg.HTML, "2,388.20") {
		t.Fatalf("expected formatted refund amount, got %q", msg.HTML)
	}
}

func TestOrderCancellationIncludesReasonWhenPresent(t *testing.T) {
	withReason := OrderCancellation(OrderEmailData{OrderNumber: "GC-1", Reason: "out of stock"})
	if !strings.Contains(withReason.HTML, "out of stock") {
		t.Fatalf("expected reason in body, got %q", withReason.HTML)
	}

	without := OrderCancellation(OrderEmailData{OrderNumber: "GC-1"})
	if strings.Contains(without.HTML, "Reason:") {
		t.Fatalf("expected no reason paragraph, got %q", without.HTML)
	}
}

func TestOTPVerificationEmailWording(t *testing.T) {
	login := OTPVerificationEmail("424242", "login", 10*time.Minute)
	if !strings.Contains(login.HTML, "424242") || !strings.Contains(login.HTML, "sign in") {
		t.Fatalf("unexpected login email %q", login.HTML)
	}
	if !strings.Contains(login.HTML, "10 minutes") {
		t.Fatalf("expected ttl in copy, got %q", login.HTML)
	}

	reset := OTPVerificationEmail("424242", "password_reset", 10*time.Minute)
	if !strings.Contains(reset.HTML, "reset your password") {
		t.Fatalf("unexpected reset email %q", reset.HTML)
	}
}

func TestNewsletterWelcomeIncludesAddress(t *testing.T) {
	msg := NewsletterWelcome("asha@example.com")
	if !strings.Contains(msg.HTML, "asha@example.com") {
		t.Fatalf("expected address in body, got %q", msg.HTML)
	}
}
