package domain

import "time"

// EventType classifies an inbound webhook event.
type EventType string

const (
	EventMessage  EventType = "message"
	EventFollow   EventType = "follow"
	EventUnfollow EventType = "unfollow"
)

// MessageType classifies the message carried by a message event.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageFile  MessageType = "file"
	MessageImage MessageType = "image"
)

// WebhookPayload is the JSON body LINE posts to the webhook endpoint.
type WebhookPayload struct {
	Destination string         `json:"destination"`
	Events      []InboundEvent `json:"events"`
}

// InboundEvent is a single webhook event. It lives for one webhook call.
type InboundEvent struct {
	Type       EventType `json:"type"`
	ReplyToken string    `json:"replyToken,omitempty"`
	Source     Source    `json:"source"`
	Timestamp  int64     `json:"timestamp,omitempty"`
	Message    *Message  `json:"message,omitempty"`
}

// Time returns the event timestamp (milliseconds since epoch) as a time.Time.
func (e InboundEvent) Time() time.Time {
	if e.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.Timestamp)
}

// Source identifies who sent the event.
type Source struct {
	Type    string `json:"type,omitempty"` // user | group | room
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// PushTarget returns the address used for push notifications: the user when
// known, otherwise the group or room the event came from.
func (s Source) PushTarget() string {
	switch {
	case s.UserID != "":
		return s.UserID
	case s.GroupID != "":
		return s.GroupID
	default:
		return s.RoomID
	}
}

// Message is the polymorphic message body. File and image messages carry a
// provider-assigned ID used to fetch their binary content. FileName and
// FileSize are supplied by the sender and are not trusted.
type Message struct {
	ID              string           `json:"id"`
	Type            MessageType      `json:"type"`
	Text            string           `json:"text,omitempty"`
	FileName        string           `json:"fileName,omitempty"`
	FileSize        int64            `json:"fileSize,omitempty"`
	ContentProvider *ContentProvider `json:"contentProvider,omitempty"`
}

// ContentProvider describes where image content is hosted.
type ContentProvider struct {
	Type               string `json:"type"` // line | external
	OriginalContentURL string `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string `json:"previewImageUrl,omitempty"`
}
