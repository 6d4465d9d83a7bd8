// Package notify fans a single notification out to a user's enabled delivery
// channels: web push first, email as a fallback.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rowanhale/verdant/internal/model"
	"github.com/rowanhale/verdant/internal/push"
	"github.com/rowanhale/verdant/internal/store"
)

// Emailer is the email channel; satisfied by email.Client.
type Emailer interface {
	Configured() bool
	Send(ctx context.Context, toEmail, subject, body string) error
}

type Dispatcher struct {
	sender push.Sender
	subs   *store.PushStore
	users  *store.UserStore
	email  Emailer
	logger *slog.Logger
}

func NewDispatcher(sender push.Sender, subs *store.PushStore, users *store.UserStore, email Emailer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		subs:   subs,
		users:  users,
		email:  email,
		logger: logger.With("component", "notify"),
	}
}

// Dispatch delivers one notification about a plant to one user. It pushes to
// every registered device, falling back to email when no push delivery
// succeeds. Returns true if at least one channel accepted the message.
func (d *Dispatcher) Dispatch(ctx context.Context, userID int64, plant model.Plant, notificationType, title, message string) bool {
	enabled, err := d.subs.IsPreferenceEnabled(userID, plant.HouseholdID, notificationType)
	if err != nil {
		d.logger.Error("check preference", "user_id", userID, "error", err)
		return false
	}
	if !enabled {
		return false
	}

	delivered := d.pushToDevices(userID, plant, title, message)

	if !delivered && d.email != nil && d.email.Configured() {
		delivered = d.emailFallback(ctx, userID, title, message)
	}
	return delivered
}

func (d *Dispatcher) pushToDevices(userID int64, plant model.Plant, title, message string) bool {
	if d.sender == nil {
		return false
	}
	subs, err := d.subs.ListByUser(userID, plant.HouseholdID)
	if err != nil {
		d.logger.Error("list subscriptions", "user_id", userID, "error", err)
		return false
	}

	payload := push.Payload{
		Title: title,
		Body:  message,
		URL:   "/plants",
	}

	delivered := false
	for _, sub := range subs {
		if err := d.sender.Send(&sub, payload); err != nil {
			if errors.Is(err, push.ErrExpired) {
				if err := d.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
					d.logger.Error("prune expired subscription", "error", err)
				}
			} else {
				d.logger.Warn("push send failed", "user_id", userID, "error", err)
			}
			continue
		}
		delivered = true
	}
	return delivered
}

func (d *Dispatcher) emailFallback(ctx context.Context, userID int64, title, message string) bool {
	u, err := d.users.GetByID(userID)
	if err != nil || u == nil {
		d.logger.Error("email fallback: load user", "user_id", userID, "error", err)
		return false
	}
	if err := d.email.Send(ctx, u.Email, title, message); err != nil {
		d.logger.Warn("email fallback failed", "user_id", userID, "error", err)
		return false
	}
	return true
}
