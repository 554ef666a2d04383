package users

import "time"

type User struct {
	ID           int64
	Name         string
	Phone        string
	Email        string
	PasswordHash string
	PinHash      string
	DeviceToken  string
	CreatedAt    time.Time
}

func (u *User) HasPin() bool {
	return u.PinHash != ""
}
