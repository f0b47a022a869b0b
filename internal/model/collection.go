package model

import "time"

// Collection is a named, ordered grouping of the owner's items.
//
// Members only hold item ids; the displayed item fields are joined in at
// read time (see CollectionView) so they never go stale.
//
// Likes has set semantics keyed by Email.
type Collection struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	OwnerEmail  string             `json:"ownerEmail"`
	Members     []CollectionMember `json:"members"`
	Media       []MediaAttachment  `json:"media"`
	Tags        []string           `json:"tags"`
	IsPublic    bool               `json:"isPublic"`
	Views       int                `json:"views"`
	Likes       []CollectionLike   `json:"likes"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type CollectionMember struct {
	ItemID  string    `json:"itemId"`
	AddedAt time.Time `json:"addedAt"`
}

type CollectionLike struct {
	Email   string    `json:"email"`
	LikedAt time.Time `json:"likedAt"`
}

// HasMember reports whether itemID is already in the collection.
func (c *Collection) HasMember(itemID string) bool {
	for _, m := range c.Members {
		if m.ItemID == itemID {
			return true
		}
	}
	return false
}

// RemoveMember drops itemID and reports whether anything was removed.
func (c *Collection) RemoveMember(itemID string) bool {
	for i, m := range c.Members {
		if m.ItemID == itemID {
			c.Members = append(c.Members[:i], c.Members[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveMedia drops the attachment with the given host asset id.
func (c *Collection) RemoveMedia(hostAssetID string) bool {
	for i, m := range c.Media {
		if m.HostAssetID == hostAssetID {
			c.Media = append(c.Media[:i], c.Media[i+1:]...)
			return true
		}
	}
	return false
}

// ToggleLike adds email to Likes, or removes it if already present.
// Returns the new liked state. Applying it twice is a no-op.
func (c *Collection) ToggleLike(email string, now time.Time) bool {
	for i, l := range c.Likes {
		if l.Email == email {
			c.Likes = append(c.Likes[:i], c.Likes[i+1:]...)
			return false
		}
	}
	c.Likes = append(c.Likes, CollectionLike{Email: email, LikedAt: now})
	return true
}

// CollectionInput is what a user submits to create a collection.
type CollectionInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ItemIDs     []string `json:"itemIds"`
	Tags        []string `json:"tags"`
	IsPublic    bool     `json:"isPublic"`
}

// CollectionPatch lists the only fields an owner may edit directly.
type CollectionPatch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsPublic    *bool    `json:"isPublic,omitempty"`
}

// CollectionView is a collection as returned to clients: members carry a
// snapshot of the referenced item, computed for this request only.
type CollectionView struct {
	Collection
	Members   []MemberView `json:"members"`
	LikeCount int          `json:"likeCount"`
}

// MemberView pairs a member reference with its joined item. Item is nil
// when the referenced game has since been deleted.
type MemberView struct {
	ItemID  string       `json:"itemId"`
	AddedAt time.Time    `json:"addedAt"`
	Item    *ItemSummary `json:"item"`
}

// LikeResult is returned by a like toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"likeCount"`
}

// Page is the pagination envelope for list and search endpoints.
// Pages are 1-indexed.
type Page[T any] struct {
	Records     []T `json:"records"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	TotalCount  int `json:"totalCount"`
}
