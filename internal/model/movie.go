package model

import "time"

// Movie is a film on the owner's list.  This struct corresponds to a row
// in the `movies` table.  Rating, Ranking and Review stay nil until the
// owner rates the movie; Ranking is derived and rewritten on every
// listing.
//
// Fields:
//  ID          – primary key identifier.
//  ExternalID  – movie database id the row was created from (0 if unknown).
//  Title       – unique title.
//  Year        – release year as text ("" when unknown).
//  Description – overview from the movie database.
//  Rating      – owner's rating out of 10.
//  Ranking     – position in the rating order, 1 is best.
//  Review      – owner's short review.
//  ImgURL      – poster image URL.
type Movie struct {
	ID          uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	ExternalID  int64     `json:"external_id" gorm:"index"`
	Title       string    `json:"title" gorm:"size:250;uniqueIndex;not null"`
	Year        string    `json:"year" gorm:"size:250"`
	Description string    `json:"description" gorm:"type:text"`
	Rating      *float64  `json:"rating"`
	Ranking     *int      `json:"ranking"`
	Review      *string   `json:"review" gorm:"size:250"`
	ImgURL      string    `json:"img_url" gorm:"size:500"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName pins the table name regardless of GORM naming strategy.
func (Movie) TableName() string { return "movies" }

// Rated reports whether the owner has rated the movie.
func (m Movie) Rated() bool { return m.Rating != nil }
