package models

// Book is the inventory record a swap or access request points at.
// AllowedUserIDs has set semantics: granting access twice for the same
// requester must leave them listed exactly once.
type Book struct {
	ID             string   `bson:"_id" json:"id"`
	Title          string   `bson:"title" json:"title"`
	OwnerID        string   `bson:"owner_id" json:"owner_id"`
	IsAvailable    bool     `bson:"is_available" json:"is_available"`
	SwapID         string   `bson:"swap_id,omitempty" json:"swap_id,omitempty"`
	AllowedUserIDs []string `bson:"allowed_user_ids,omitempty" json:"allowed_user_ids,omitempty"`
}
