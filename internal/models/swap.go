package models

import "time"

// SwapStatus is the decision state of a swap offer.
type SwapStatus string

const (
	SwapPending  SwapStatus = "Pending"
	SwapAccepted SwapStatus = "Accepted"
	SwapRejected SwapStatus = "Rejected"
)

// Swap is a book swap offer awaiting a decision from the receiver.
// Created by the main application; mutated here only by the action handler.
type Swap struct {
	ID         string     `bson:"_id" json:"id"`
	BookID     string     `bson:"book_id" json:"book_id"`
	BookTitle  string     `bson:"book_title" json:"book_title"`
	SenderName string     `bson:"sender_name" json:"sender_name"`
	ReceiverID string     `bson:"receiver_id" json:"receiver_id"`
	Status     SwapStatus `bson:"status" json:"status"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	DecidedAt  *time.Time `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
}
