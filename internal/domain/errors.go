package domain

import "errors"

var (
	// ErrInvalidArgument is returned for malformed input such as an empty department or bad paging.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDataSourceUnavailable indicates the attempt/profile store cannot be read.
	ErrDataSourceUnavailable = errors.New("data source unavailable")
	// ErrCacheError indicates a snapshot store read or write failed.
	ErrCacheError = errors.New("cache error")
	// ErrPartialFailure marks a fan-out operation where some departments failed.
	ErrPartialFailure = errors.New("partial failure")
	// ErrSnapshotNotFound is a cache miss: absent, expired or unreadable snapshot.
	ErrSnapshotNotFound = errors.New("leaderboard snapshot not found")
	// ErrMalformedSnapshot indicates a stored snapshot failed schema validation.
	ErrMalformedSnapshot = errors.New("malformed leaderboard snapshot")
	// ErrRemoteUnavailable indicates the remote recomputation call failed.
	ErrRemoteUnavailable = errors.New("remote recomputation unavailable")
	// ErrStudentNotFound is returned when a profile lookup misses.
	ErrStudentNotFound = errors.New("student not found")
)
