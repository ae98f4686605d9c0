package models

import "time"

// Message is a chat message between two users. Creation triggers a plain
// notification email to the receiver; no tokens are minted for messages.
type Message struct {
	ID         string    `bson:"_id" json:"id"`
	ChatID     string    `bson:"chat_id" json:"chat_id"`
	SenderName string    `bson:"sender_name" json:"sender_name"`
	ReceiverID string    `bson:"receiver_id" json:"receiver_id"`
	Text       string    `bson:"text" json:"text"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
