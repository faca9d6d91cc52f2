package config

import "errors"

var (
	// ErrInvalidConfig wraps all validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrWatcherClosed is returned by operations on a closed watcher.
	ErrWatcherClosed = errors.New("watcher closed")
)
