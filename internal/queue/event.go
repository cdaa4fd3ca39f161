// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.
package queue

import "time"

// MovieEventsQueue is the durable queue every movie event is routed to.
const MovieEventsQueue = "movie.events"

// Event types.
const (
	EventMovieAdded   = "movie.added"
	EventMovieRated   = "movie.rated"
	EventMovieDeleted = "movie.deleted"
)

// MovieEvent is published after a movie is added, rated or deleted.  It
// carries enough information for the activity log without querying the
// database.
type MovieEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	MovieID    uint64    `json:"movie_id"`
	ExternalID int64     `json:"external_id,omitempty"`
	Title      string    `json:"title"`
	Rating     *float64  `json:"rating,omitempty"`
	Review     string    `json:"review,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
