package sms

import (
	"strings"
	"testing"

	"github.com/sehatline/sehat_backend/config"
)

func TestNewFromConfig_Disabled(t *testing.T) {
	client, err := NewFromConfig(config.SMSConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	if client.IsEnabled() {
		t.Error("Expected client to be disabled")
	}
}

func TestNewFromConfig_EnabledWithoutCredentials(t *testing.T) {
	cfg := config.SMSConfig{
		Enabled: true,
		Twilio:  config.TwilioConfig{FromNumber: "+15550001111"},
	}
	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("Expected error when credentials are missing")
	}
}

func TestNewFromConfig_EnabledWithoutFrom(t *testing.T) {
	cfg := config.SMSConfig{
		Enabled: true,
		Twilio: config.TwilioConfig{
			AccountSID: "AC-test",
			AuthToken:  "token",
		},
	}
	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("Expected error when from number is missing")
	}
}

func TestSend_DisabledClient(t *testing.T) {
	client := &Client{enabled: false}

	res, err := client.Send("+919812345678", "time to take your medicine")
	if err != nil {
		t.Fatalf("Expected no error for disabled client, got: %v", err)
	}
	if res.Outcome != OutcomeAccepted {
		t.Errorf("Expected accepted outcome, got %s", res.Outcome)
	}
	if !strings.HasPrefix(res.GatewayMessageID, "noop-") {
		t.Errorf("Expected synthetic message id, got %q", res.GatewayMessageID)
	}
}

func TestSend_Validation(t *testing.T) {
	client := &Client{enabled: false}

	tests := []struct {
		name    string
		phone   string
		message string
	}{
		{"empty phone number", "", "take your medicine"},
		{"empty message", "+919812345678", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := client.Send(tt.phone, tt.message); err == nil {
				t.Error("Expected error but got nil")
			}
		})
	}
}

func TestCallbackOutcome(t *testing.T) {
	tests := []struct {
		status  string
		outcome Outcome
		settles bool
	}{
		{"delivered", OutcomeAccepted, true},
		{"sent", OutcomeAccepted, true},
		{"failed", OutcomeRejected, true},
		{"undelivered", OutcomeRejected, true},
		{"queued", "", false},
		{"sending", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run("status_"+tt.status, func(t *testing.T) {
			outcome, settles := CallbackOutcome(tt.status)
			if settles != tt.settles {
				t.Fatalf("CallbackOutcome(%q) settles = %v, want %v", tt.status, settles, tt.settles)
			}
			if settles && outcome != tt.outcome {
				t.Errorf("CallbackOutcome(%q) = %s, want %s", tt.status, outcome, tt.outcome)
			}
		})
	}
}
