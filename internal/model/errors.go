package model

import "errors"

var (
	// User store errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
