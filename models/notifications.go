package models

// Push notification kinds carried in the payload's routing data.
const (
	PushTypeLikeReceived = "like_received"
	PushTypeMatch        = "match"
)

// PushPayload is the contract handed to the push collaborator. Everything in
// it is resolved before the send is attempted; delivery never waits on image
// processing.
type PushPayload struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Data     PushData `json:"data"`
}

// PushData is the routing metadata the client uses to open the right screen.
type PushData struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}
