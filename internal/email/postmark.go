package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const postmarkURL = "https://api.postmarkapp.com/email"

// Client sends transactional email through the Postmark HTTP API. Transient
// failures (network errors, 5xx) are retried with fibonacci backoff; 4xx
// responses are permanent.
type Client struct {
	serverToken string
	fromEmail   string
	appName     string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		appName:     "Verdant",
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendLoginCode emails a one-time sign-in code.
func (c *Client) SendLoginCode(ctx context.Context, toEmail, code, purpose string) error {
	var subject, action string
	switch purpose {
	case "login":
		subject = "Sign in to Verdant"
		action = "sign in"
	case "register":
		subject = "Welcome to Verdant"
		action = "complete your registration"
	default:
		subject = "Your Verdant code"
		action = "continue"
	}

	textBody := fmt.Sprintf("Your code to %s:\n\n%s\n\nThis code expires in 15 minutes.", action, code)
	htmlBody := fmt.Sprintf(
		`<p>Your code to %s:</p><p style="font-size:1.5em;letter-spacing:0.2em"><strong>%s</strong></p><p>This code expires in 15 minutes.</p>`,
		action, code,
	)
	return c.send(ctx, toEmail, subject, htmlBody, textBody)
}

// SendInvite emails a household invite code.
func (c *Client) SendInvite(ctx context.Context, toEmail, householdName, inviteCode string) error {
	subject := fmt.Sprintf("You've been invited to %s on Verdant", householdName)
	textBody := fmt.Sprintf(
		"You've been invited to join %s.\n\nEnter this invite code in the app to join:\n\n%s\n",
		householdName, inviteCode,
	)
	htmlBody := fmt.Sprintf(
		`<p>You've been invited to join <strong>%s</strong>.</p><p>Enter this invite code in the app to join:</p><p style="font-size:1.5em;letter-spacing:0.2em"><strong>%s</strong></p>`,
		householdName, inviteCode,
	)
	return c.send(ctx, toEmail, subject, htmlBody, textBody)
}

// Send delivers a plain notification email with the given subject and body.
func (c *Client) Send(ctx context.Context, toEmail, subject, body string) error {
	return c.send(ctx, toEmail, subject, fmt.Sprintf("<p>%s</p>", html.EscapeString(body)), body)
}

func (c *Client) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "POST", postmarkURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Postmark-Server-Token", c.serverToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("send email: %w", err))
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("postmark API error: status %d", resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", toEmail, err)
	}
	return nil
}
