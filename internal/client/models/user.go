// Package models defines the client-side data carried by the session layer.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// UserProfile is the identity returned by the backend at login.
type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone_number"`
	Email string `json:"email,omitempty"`
}

// UnmarshalJSON accepts the id either as a JSON string or as a number; the
// backend sends the numeric row id.
func (u *UserProfile) UnmarshalJSON(data []byte) error {
	type alias UserProfile
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(u)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(aux.ID)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		u.ID = ""
	case raw[0] == '"':
		return json.Unmarshal(raw, &u.ID)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("user id: %w", err)
		}
		u.ID = n.String()
	}
	return nil
}
