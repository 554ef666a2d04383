// Package notify forwards push-notification device tokens to the backend.
//
// The notification subsystem publishes DeviceRegistered events on a channel;
// it never reads session state. The Coordinator remembers the latest token
// and sends it with the current AuthToken whenever a token arrives while
// logged in and again after every fresh login.
package notify

import (
	"context"
	"time"

	"github.com/rayyanshah04/flexpay/internal/client/models"
	"github.com/rayyanshah04/flexpay/internal/ids"
	"github.com/rayyanshah04/flexpay/internal/logging"
	"github.com/rayyanshah04/flexpay/internal/redact"
)

// DeviceRegistered is emitted when the platform issues a push token.
type DeviceRegistered struct {
	ID    string
	Token string
	At    time.Time
}

func NewDeviceRegistered(token string) DeviceRegistered {
	now := time.Now()
	return DeviceRegistered{ID: ids.New(now), Token: token, At: now}
}

// Session is the part of the session manager the coordinator needs.
type Session interface {
	AuthToken() string
	Subscribe(buffer int) (<-chan models.Transition, func())
}

type Registrar interface {
	RegisterDeviceToken(ctx context.Context, authToken, deviceToken string) error
}

type Coordinator struct {
	session   Session
	registrar Registrar
	log       logging.Logger

	latest DeviceRegistered
}

func NewCoordinator(s Session, r Registrar, log logging.Logger) *Coordinator {
	return &Coordinator{session: s, registrar: r, log: log}
}

// Run processes events until ctx is done. A closed events channel stops
// token intake but login transitions are still handled.
func (c *Coordinator) Run(ctx context.Context, events <-chan DeviceRegistered) error {
	transitions, unsubscribe := c.session.Subscribe(8)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.latest = ev
			c.log.Debug(ctx, "device registered", "event_id", ev.ID)
			c.forward(ctx)

		case t, ok := <-transitions:
			if !ok {
				return nil
			}
			if t.From == models.Unauthenticated && t.To == models.LoggedInLocked {
				c.forward(ctx)
			}
		}
	}
}

func (c *Coordinator) forward(ctx context.Context) {
	if c.latest.Token == "" {
		return
	}
	authToken := c.session.AuthToken()
	if authToken == "" {
		return
	}

	if err := c.registrar.RegisterDeviceToken(ctx, authToken, c.latest.Token); err != nil {
		c.log.Warn(ctx, "device token registration failed", "event_id", c.latest.ID, "error", err)
		return
	}
	c.log.Info(ctx, "device token registered", "event_id", c.latest.ID, "token", redact.Token())
}
