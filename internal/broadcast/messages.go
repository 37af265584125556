package broadcast

import (
	"encoding/json"
	"fmt"
)

// Inbound events.
const (
	EventGetListings  = "get_listings"
	EventGetListing   = "get_listing"
	EventCreateLetter = "create_letter"
	EventKeepalive    = "keepalive"
)

// Outbound events.
const (
	EventListings      = "listings"
	EventListing       = "listing"
	EventNewListings   = "new_listings"
	EventLetterSuccess = "letter_success"
	EventLetterError   = "letter_error"
	EventError         = "error"
)

// Envelope is the frame exchanged over the socket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ListingRequest is the payload of get_listing.
type ListingRequest struct {
	ID int64 `json:"id"`
}

// LetterRequest is the payload of create_letter.
type LetterRequest struct {
	ListingID int64  `json:"listing_id"`
	Email     string `json:"email"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type LetterSuccess struct {
	Message string `json:"message"`
}

type LetterError struct {
	Error string `json:"error"`
}

type KeepaliveReply struct {
	Status string `json:"status"`
}

// Encode marshals data into an envelope for event.
func Encode(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	b, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", event, err)
	}
	return b, nil
}
