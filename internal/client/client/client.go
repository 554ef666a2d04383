package client

import (
	"context"

	"github.com/rayyanshah04/flexpay/internal/client/models"
)

// Client is the Auth Backend contract. Methods taking a token send it as a
// Bearer credential.
type Client interface {
	Login(ctx context.Context, phone, password string) (string, models.UserProfile, error)
	CheckPinStatus(ctx context.Context, authToken string) (bool, error)
	SetPin(ctx context.Context, authToken, pin string) error
	RefreshSession(ctx context.Context, authToken string) (string, error)
	RegisterDeviceToken(ctx context.Context, authToken, deviceToken string) error
	Call(ctx context.Context, method, path, token string, in, out any) error
}
