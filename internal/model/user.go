package model

import "errors"

// DefaultUsername is the name carried in tokens issued to the wardrobe owner.
const DefaultUsername = "owner"

// MinPasswordLength is the shortest password accepted for the owner account.
const MinPasswordLength = 8

// ErrPasswordTooShort is returned by ValidatePassword.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// ValidatePassword checks the owner password before it is hashed.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
