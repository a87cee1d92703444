package models

// Review is a guest review synced from Hostaway.
type Review struct {
	// ID is the Hostaway review identifier.
	ID int64 `json:"id" bson:"_id"`

	// PropertyID is the local property the review belongs to.
	PropertyID int64 `json:"property_id" bson:"property_id"`

	// ListingID is the Hostaway listing the review was left on.
	ListingID int64 `json:"listing_id" bson:"listing_id"`

	GuestName    string `json:"guest_name" bson:"guest_name"`
	Rating       int    `json:"rating" bson:"rating"`
	PublicReview string `json:"public_review" bson:"public_review"`
	Channel      string `json:"channel" bson:"channel"`

	// SubmittedAt is the Unix timestamp when the guest submitted the review.
	SubmittedAt int64 `json:"submitted_at" bson:"submitted_at"`

	// SyncedAt is the Unix timestamp of the last sync that touched the review.
	SyncedAt int64 `json:"synced_at" bson:"synced_at"`
}
