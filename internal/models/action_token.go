package models

import (
	"time"
)

// TokenAction is the single verb an action token authorizes.
type TokenAction string

const (
	ActionAccept  TokenAction = "accept"
	ActionReject  TokenAction = "reject"
	ActionGrant   TokenAction = "grant"
	ActionDecline TokenAction = "decline"
)

// Target collections an action token can point at.
const (
	TargetSwaps          = "swaps"
	TargetAccessRequests = "access_requests"
)

// Meta keys carried by tokens so the side effect can be applied without
// re-fetching the target record.
const (
	MetaBookID      = "book_id"
	MetaRequesterID = "requester_id"
)

// ActionToken is a single-use, time-limited capability. The _id is the
// secret embedded in the emailed link: anyone holding it can exercise the
// action, so it is generated from crypto/rand. Tokens are never deleted;
// consumed ones are retained as an audit trail.
type ActionToken struct {
	ID               string            `bson:"_id" json:"id"`
	TargetCollection string            `bson:"target_collection" json:"target_collection"`
	TargetID         string            `bson:"target_id" json:"target_id"`
	Action           TokenAction       `bson:"action" json:"action"`
	Meta             map[string]string `bson:"meta,omitempty" json:"meta,omitempty"`
	Used             bool              `bson:"used" json:"used"`
	CreatedAt        time.Time         `bson:"created_at" json:"created_at"`
	ExpiresAt        time.Time         `bson:"expires_at" json:"expires_at"`
	UsedAt           *time.Time        `bson:"used_at,omitempty" json:"used_at,omitempty"`
}

// IsExpired returns true if the token's absolute expiry has passed.
func (t *ActionToken) IsExpired() bool {
	return time.Now().UTC().After(t.ExpiresAt)
}
