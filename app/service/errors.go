package service

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrSessionNotFound = errors.New("reconciliation session not found")
)
