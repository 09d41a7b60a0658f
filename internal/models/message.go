package models

import "time"

// MessageType discriminates how a message's Text field is interpreted.
// For image, voice and gif messages Text holds the retrieval URL.
type MessageType string

const (
	MessageTypeUser  MessageType = "user"
	MessageTypeAI    MessageType = "ai"
	MessageTypeImage MessageType = "image"
	MessageTypeVoice MessageType = "voice"
	MessageTypeGIF   MessageType = "gif"
)

// Message is an immutable unit of channel content. Messages are append-only:
// once written they are never mutated or deleted.
type Message struct {
	ID             string      `json:"id" bson:"_id,omitempty" firestore:"id"`
	Text           string      `json:"text" bson:"text" firestore:"text"`
	SenderID       string      `json:"sender_id" bson:"sender_id" firestore:"senderId"`
	SenderName     string      `json:"sender_name" bson:"sender_name" firestore:"senderName"`
	SenderPhotoURL string      `json:"sender_photo_url" bson:"sender_photo_url" firestore:"senderPhotoURL"`
	Timestamp      time.Time   `json:"timestamp" bson:"timestamp" firestore:"timestamp,serverTimestamp"`
	Type           MessageType `json:"type" bson:"type" firestore:"type"`
}
