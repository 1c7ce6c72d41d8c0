package service

import "errors"

var (
	// ErrConcurrentUpdate is returned when an optimistic write lost the race
	// twice in a row; the caller should re-read and retry.
	ErrConcurrentUpdate = errors.New("belief modified concurrently, retry")

	// ErrForgettingInProgress is returned when a forgetting cycle is requested
	// while another one is still running.
	ErrForgettingInProgress = errors.New("forgetting cycle already in progress")

	ErrInvalidInput = errors.New("invalid input")
)
