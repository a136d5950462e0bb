package storage

import (
	"time"

	"github.com/google/uuid"
)

// Post is one delivered "Random Route of the Day" message.
type Post struct {
	ID              uuid.UUID `json:"id"`
	ChannelID       string    `json:"channel_id"`
	OriginID        int       `json:"origin_id"`
	OriginCode      string    `json:"origin_code"`
	DestinationID   int       `json:"destination_id"`
	DestinationCode string    `json:"destination_code"`
	Itineraries     int       `json:"itineraries"`
	Message         string    `json:"message"`
	PostedAt        time.Time `json:"posted_at"`
}
