package model

import "time"

// PlatformTally counts how many games a user has added per platform.
// Unique per (Name, OwnerEmail). Item deletes never decrement it; only an
// explicit Update can lower the count.
type PlatformTally struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	OwnerEmail string    `json:"ownerEmail"`
	Count      int       `json:"count"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PlatformPatch is a partial update of a tally. Nil fields are left alone.
type PlatformPatch struct {
	Name  *string `json:"name"`
	Count *int    `json:"count"`
}
