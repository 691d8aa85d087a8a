// Package sms is the dispatch client boundary. The core hands it a phone
// number and a rendered message and records exactly one outcome per call:
// accepted, rejected, or unknown. Unknown means the gateway never answered;
// the slot is settled later by the status callback or the reconciler.
package sms

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/sehatline/sehat_backend/config"
)

type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeUnknown  Outcome = "unknown"
)

// Result is the gateway's answer for one send attempt.
type Result struct {
	GatewayMessageID string
	Outcome          Outcome
	Detail           string
}

// Client provides SMS sending via Twilio.
type Client struct {
	rest        *twilio.RestClient
	from        string
	callbackURL string
	enabled     bool
}

// NewFromConfig creates a new SMS client from the application configuration.
// If SMS is disabled, returns a client that reports every send as accepted
// with a synthetic message id (useful for development).
func NewFromConfig(cfg config.SMSConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{enabled: false}, nil
	}

	if cfg.Twilio.AccountSID == "" || cfg.Twilio.AuthToken == "" {
		return nil, fmt.Errorf("twilio credentials required when SMS enabled")
	}
	if cfg.Twilio.FromNumber == "" {
		return nil, fmt.Errorf("twilio from number required when SMS enabled")
	}

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.Twilio.AccountSID,
		Password: cfg.Twilio.AuthToken,
	})

	timeout := time.Duration(cfg.Twilio.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rest.SetTimeout(timeout)

	return &Client{
		rest:        rest,
		from:        cfg.Twilio.FromNumber,
		callbackURL: cfg.Twilio.CallbackURL,
		enabled:     true,
	}, nil
}

// Send delivers one message. The returned Result always carries an outcome;
// err is non-nil only for caller mistakes (empty inputs).
func (c *Client) Send(phoneNumber, message string) (Result, error) {
	if phoneNumber == "" {
		return Result{}, fmt.Errorf("phone number is required")
	}
	if message == "" {
		return Result{}, fmt.Errorf("message is required")
	}

	if !c.enabled {
		return Result{
			GatewayMessageID: "noop-" + uuid.NewString(),
			Outcome:          OutcomeAccepted,
			Detail:           "sms disabled",
		}, nil
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(phoneNumber)
	params.SetFrom(c.from)
	params.SetBody(message)
	if c.callbackURL != "" {
		params.SetStatusCallback(c.callbackURL)
	}

	resp, err := c.rest.Api.CreateMessage(params)
	if err != nil {
		var restErr *twclient.TwilioRestError
		if errors.As(err, &restErr) {
			// The gateway answered and said no: terminal rejection.
			return Result{Outcome: OutcomeRejected, Detail: restErr.Message}, nil
		}
		// Timeout or transport failure: the message may or may not have
		// been queued. Never guess, never resend.
		return Result{Outcome: OutcomeUnknown, Detail: err.Error()}, nil
	}

	res := Result{Outcome: OutcomeAccepted}
	if resp.Sid != nil {
		res.GatewayMessageID = *resp.Sid
	}
	if resp.Status != nil {
		res.Detail = *resp.Status
		switch *resp.Status {
		case "failed", "undelivered":
			res.Outcome = OutcomeRejected
		}
	}
	return res, nil
}

// IsEnabled returns whether SMS sending is enabled.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// CallbackOutcome maps a Twilio delivery-status callback value to the
// outcome it settles. The bool is false for intermediate statuses that
// settle nothing.
func CallbackOutcome(status string) (Outcome, bool) {
	switch status {
	case "delivered", "sent":
		return OutcomeAccepted, true
	case "failed", "undelivered":
		return OutcomeRejected, true
	}
	return "", false
}
