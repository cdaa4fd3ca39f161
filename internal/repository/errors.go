// Package repository defines error types that are reused across the
// data access layer.  These sentinel values allow higher layers such as
// services and handlers to distinguish between failure scenarios without
// inspecting driver-specific errors.
package repository

import "errors"

// ErrMovieNotFound is returned when no movie matches the requested id or
// title.  Handlers should translate this into an HTTP 404 response.
var ErrMovieNotFound = errors.New("movie not found")

// ErrDuplicateTitle is returned when a movie with the same title is already
// stored.  Handlers should translate this into an HTTP 409 response.
var ErrDuplicateTitle = errors.New("movie title already exists")
