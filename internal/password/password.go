// Package password contains utilities for validating passwords.
package password

import (
	"errors"

	passwordvalidator "github.com/wagslane/go-password-validator"
)

const (
	minimumLength      = 10
	minimumEntropyBits = 60
)

var (
	ErrTooShort = errors.New("password must be at least 10 characters long")
	ErrTooWeak  = errors.New("password is too weak")
)

func Validate(password string) error {
	if len(password) < minimumLength {
		return ErrTooShort
	}
	if err := passwordvalidator.Validate(password, minimumEntropyBits); err != nil {
		return errors.Join(ErrTooWeak, err)
	}
	return nil
}
