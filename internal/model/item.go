// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// ItemStatus is where a game sits in the player's backlog.
type ItemStatus string

const (
	StatusPlaying   ItemStatus = "playing"
	StatusCompleted ItemStatus = "completed"
	StatusBacklog   ItemStatus = "backlog"
	StatusAbandoned ItemStatus = "abandoned"
)

// Valid reports whether s is one of the four known statuses.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusPlaying, StatusCompleted, StatusBacklog, StatusAbandoned:
		return true
	}
	return false
}

// Item is a single cataloged game owned by one user.
//
// OwnerEmail is the partition key: every query for items is scoped by it,
// and it is always stored trimmed and lower-cased.
//
// ImageURL and VideoURL are the legacy single-media fields; newer media
// goes into MediaAttachments. Both are cleaned up on delete.
type Item struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Platform         string            `json:"platform"`
	Status           ItemStatus        `json:"status"`
	Progress         int               `json:"progress"`
	HoursPlayed      float64           `json:"hoursPlayed"`
	Rating           int               `json:"rating"`
	Description      string            `json:"description"`
	Developer        string            `json:"developer"`
	Publisher        string            `json:"publisher"`
	PersonalNotes    string            `json:"personalNotes"`
	ReleaseDate      time.Time         `json:"releaseDate"`
	Genres           []string          `json:"genres"`
	PlayMode         []string          `json:"playMode"`
	Owned            bool              `json:"owned"`
	OwnerEmail       string            `json:"ownerEmail"`
	ImageURL         string            `json:"imageUrl"`
	VideoURL         string            `json:"videoUrl"`
	MediaAttachments []MediaAttachment `json:"mediaAttachments"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Summary returns the read projection embedded in collection responses.
func (i *Item) Summary() ItemSummary {
	return ItemSummary{
		ID:          i.ID,
		Title:       i.Title,
		Platform:    i.Platform,
		Status:      i.Status,
		Genres:      i.Genres,
		Rating:      i.Rating,
		Description: i.Description,
		ImageURL:    i.ImageURL,
	}
}

// ItemSummary is the denormalized view of an Item that collection reads
// join in per request. It is never stored.
type ItemSummary struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Platform    string     `json:"platform"`
	Status      ItemStatus `json:"status"`
	Genres      []string   `json:"genres"`
	Rating      int        `json:"rating"`
	Description string     `json:"description"`
	ImageURL    string     `json:"imageUrl"`
}

// ItemInput carries the fields a user submits when cataloging a game.
// Pointer fields distinguish "not sent" from a zero value so the service
// can apply defaults (rating 3, owned true, ...).
type ItemInput struct {
	Title         string     `json:"title"`
	Platform      string     `json:"platform"`
	Status        ItemStatus `json:"status"`
	Progress      *int       `json:"progress,omitempty"`
	HoursPlayed   *float64   `json:"hoursPlayed,omitempty"`
	Rating        *int       `json:"rating,omitempty"`
	Description   string     `json:"description"`
	Developer     string     `json:"developer"`
	Publisher     string     `json:"publisher"`
	PersonalNotes string     `json:"personalNotes"`
	ReleaseDate   *time.Time `json:"releaseDate,omitempty"`
	Genres        []string   `json:"genres"`
	PlayMode      []string   `json:"playMode"`
	Owned         *bool      `json:"owned,omitempty"`
	ImageURL      string     `json:"imageUrl"`
	VideoURL      string     `json:"videoUrl"`
}

// ItemPatch is a partial update. Only non-nil fields are applied; this
// struct is the whitelist of what an update may touch.
type ItemPatch struct {
	Title         *string     `json:"title,omitempty"`
	Platform      *string     `json:"platform,omitempty"`
	Status        *ItemStatus `json:"status,omitempty"`
	Progress      *int        `json:"progress,omitempty"`
	HoursPlayed   *float64    `json:"hoursPlayed,omitempty"`
	Rating        *int        `json:"rating,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Developer     *string     `json:"developer,omitempty"`
	Publisher     *string     `json:"publisher,omitempty"`
	PersonalNotes *string     `json:"personalNotes,omitempty"`
	ReleaseDate   *time.Time  `json:"releaseDate,omitempty"`
	Genres        []string    `json:"genres,omitempty"`
	PlayMode      []string    `json:"playMode,omitempty"`
	Owned         *bool       `json:"owned,omitempty"`
	ImageURL      *string     `json:"imageUrl,omitempty"`
	VideoURL      *string     `json:"videoUrl,omitempty"`
}
