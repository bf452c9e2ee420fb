package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	twilioBaseURL = "https://api.twilio.com"
	// Twilio splits longer bodies into segments and rejects anything past this.
	maxSMSLength = 1600
)

var ErrInvalidMessage = errors.New("invalid sms")

// Twilio sends SMS through the Twilio Messages REST API.
type Twilio struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	Client     *http.Client
}

// NewTwilio returns nil unless all credentials are set.
func NewTwilio(accountSID, authToken, from string) *Twilio {
	if accountSID == "" || authToken == "" || from == "" {
		return nil
	}
	return &Twilio{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		BaseURL:    twilioBaseURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send texts message to the phone number in destination, which is stored
// without the leading "+".
func (t *Twilio) Send(ctx context.Context, destination, message string) error {
	if t == nil {
		return errors.New("twilio disabled")
	}
	to := strings.TrimSpace(destination)
	msg := strings.TrimSpace(message)
	if to == "" {
		return fmt.Errorf("%w: empty destination", ErrInvalidMessage)
	}
	if msg == "" || len(msg) > maxSMSLength {
		return fmt.Errorf("%w: body must be 1-%d characters", ErrInvalidMessage, maxSMSLength)
	}
	if !strings.HasPrefix(to, "+") {
		to = "+" + to
	}

	form := url.Values{}
	form.Set("From", t.From)
	form.Set("To", to)
	form.Set("Body", msg)

	endpoint := strings.TrimRight(t.BaseURL, "/") +
		"/2010-04-01/Accounts/" + url.PathEscape(t.AccountSID) + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	req.SetBasicAuth(t.AccountSID, t.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	if resp.StatusCode/100 == 2 {
		return nil
	}
	var te twilioError
	if json.Unmarshal(body, &te) == nil && te.Message != "" {
		return fmt.Errorf("twilio: status %d: code %d: %s", resp.StatusCode, te.Code, te.Message)
	}
	return fmt.Errorf("twilio: status %d", resp.StatusCode)
}
