package models

import "errors"

var (
	ErrNotFound = errors.New("not found")
)

type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// User represents the local account holder or a remote participant snapshot.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
	IsOnline bool   `json:"isOnline,omitempty"`
}

// Contact is a locally managed address-book entry. It is independent from
// User: a contact does not have to be a registered account.
type Contact struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
	IsOnline bool   `json:"isOnline,omitempty"`
}

// Message is one entry of the append-only message log. Messages are never
// edited or deleted once stored.
type Message struct {
	ID          string        `json:"id"`
	Text        string        `json:"text"`
	SenderID    string        `json:"senderId"`
	ReceiverID  string        `json:"receiverId"`
	Timestamp   int64         `json:"timestamp"` // Unix timestamp (milliseconds)
	IsEncrypted bool          `json:"isEncrypted"`
	Status      MessageStatus `json:"status"`
}

// Chat represents a conversation summary for list display: participants plus
// the denormalized last message and unread count.
type Chat struct {
	ID           string   `json:"id"`
	Participants []User   `json:"participants"`
	LastMessage  *Message `json:"lastMessage,omitempty"`
	UnreadCount  int      `json:"unreadCount"`
	IsGroup      bool     `json:"isGroup"`
}
