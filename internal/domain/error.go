package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrQueueUnavailable  = errors.New("queue not available")
	ErrBrokerUnavailable = errors.New("broker not available")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrReadDatabaseRow   = errors.New("failed to read database row")
)
