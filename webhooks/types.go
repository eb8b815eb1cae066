package webhooks

// WebhookEvent represents the main webhook payload from LINE
type WebhookEvent struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event represents one event in the webhook. Only message events are handled
type Event struct {
	Type            string           `json:"type"`
	Mode            string           `json:"mode"`
	Timestamp       int64            `json:"timestamp"` // Unix milliseconds
	Source          Source           `json:"source"`
	WebhookEventID  string           `json:"webhookEventId"`
	DeliveryContext *DeliveryContext `json:"deliveryContext,omitempty"`
	ReplyToken      string           `json:"replyToken,omitempty"`
	Message         *Message         `json:"message,omitempty"`
}

// Source identifies who sent the event
type Source struct {
	Type    string `json:"type"` // user, group or room
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// DeliveryContext tells whether the event is a redelivery
type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// Message represents a message object
type Message struct {
	ID   string `json:"id"`
	Type string `json:"type"` // text, image, sticker, ...
	Text string `json:"text,omitempty"`
}
