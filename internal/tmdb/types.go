package tmdb

import "strings"

// SearchResult is one entry of a movie search.
type SearchResult struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	Overview    string `json:"overview"`
	PosterPath  string `json:"poster_path"`
}

// Year returns the year part of the release date ("" when unknown).
func (r SearchResult) Year() string { return yearOf(r.ReleaseDate) }

type searchResponse struct {
	Page         int            `json:"page"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
}

// MovieDetails is the subset of the movie detail document the app stores.
type MovieDetails struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	Overview    string `json:"overview"`
	PosterPath  string `json:"poster_path"`
	Runtime     int    `json:"runtime"`
	Tagline     string `json:"tagline"`
}

// Year returns the year part of the release date ("" when unknown).
func (d MovieDetails) Year() string { return yearOf(d.ReleaseDate) }

func yearOf(date string) string {
	year, _, _ := strings.Cut(date, "-")
	return year
}
