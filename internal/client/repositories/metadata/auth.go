package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rayyanshah04/flexpay/internal/client/models"
	"github.com/rayyanshah04/flexpay/internal/dbx"
)

const (
	keyAuthToken = "auth_token"
	keyUser      = "user"
)

// AuthStore keeps the long-lived AuthToken and the UserProfile that came with
// it. Both are written and removed together.
type AuthStore struct {
	db *sql.DB
}

func NewAuthStore(db *sql.DB) *AuthStore {
	return &AuthStore{db: db}
}

// SaveAuth overwrites the stored token and profile in one transaction.
func (s *AuthStore) SaveAuth(ctx context.Context, token string, user models.UserProfile) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv{db: tx}
		if err := repo.put(ctx, keyAuthToken, []byte(token)); err != nil {
			return err
		}
		return repo.put(ctx, keyUser, raw)
	})
}

// LoadAuth returns ErrNotFound unless both token and profile are present.
func (s *AuthStore) LoadAuth(ctx context.Context) (string, models.UserProfile, error) {
	repo := kv{db: s.db}

	token, err := repo.get(ctx, keyAuthToken)
	if err != nil {
		return "", models.UserProfile{}, err
	}
	raw, err := repo.get(ctx, keyUser)
	if err != nil {
		return "", models.UserProfile{}, err
	}

	var user models.UserProfile
	if err := json.Unmarshal(raw, &user); err != nil {
		return "", models.UserProfile{}, fmt.Errorf("decode user: %w", err)
	}
	if len(token) == 0 {
		return "", models.UserProfile{}, ErrNotFound
	}
	return string(token), user, nil
}

// ClearAuth removes the token and profile. Missing rows are not an error.
func (s *AuthStore) ClearAuth(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := kv{db: tx}
		for _, k := range []string{keyAuthToken, keyUser} {
			if err := repo.remove(ctx, k); err != nil {
				return err
			}
		}
		return nil
	})
}
