package models

import "time"

// AccessRequestStatus is the decision state of an access request.
type AccessRequestStatus string

const (
	AccessPending  AccessRequestStatus = "Pending"
	AccessAccepted AccessRequestStatus = "Accepted"
	AccessDeclined AccessRequestStatus = "Declined"
)

// AccessRequest asks a book owner to share a digital copy (or notes) with
// the requester. Granting adds the requester to the book's allow-list.
type AccessRequest struct {
	ID            string              `bson:"_id" json:"id"`
	BookID        string              `bson:"book_id" json:"book_id"`
	BookTitle     string              `bson:"book_title" json:"book_title"`
	Type          string              `bson:"type" json:"type"`
	OwnerID       string              `bson:"owner_id" json:"owner_id"`
	RequesterID   string              `bson:"requester_id" json:"requester_id"`
	RequesterName string              `bson:"requester_name" json:"requester_name"`
	Status        AccessRequestStatus `bson:"status" json:"status"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
	DecidedAt     *time.Time          `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
}
