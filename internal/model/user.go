// Package model defines the data structures used throughout the application.
package model

import "time"

// User is the profile we keep for someone who signed in through GitHub.
//
// WHY Email AS THE KEY?
// Every game, collection and tally is partitioned by owner email, so the
// email (trimmed, lower-cased) is what the session token carries. GitHubID
// is kept so a user who changes their primary email on GitHub still maps
// to the same row.
type User struct {
	ID        string    `json:"id"`
	GitHubID  int64     `json:"githubId"`
	Login     string    `json:"login"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
