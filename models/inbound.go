package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InboundMessage is a message event handed over by the webhook transport
type InboundMessage struct {
	UserID     string
	Text       string
	IsImage    bool
	ReplyToken string
	ReceivedAt time.Time
}

// Report is a completed issue report
type Report struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ReportID      string             `bson:"report_id" json:"report_id"`
	UserID        string             `bson:"user_id" json:"user_id"`
	Title         string             `bson:"title" json:"title"`
	Detail        string             `bson:"detail" json:"detail"`
	PhotoReceived bool               `bson:"photo_received" json:"photo_received"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
}

// NameKind selects one of the two name frequency tables
type NameKind string

const (
	NameKindReal NameKind = "real"
	NameKindNick NameKind = "nick"
)

// NameCount is one row of a name frequency table
type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}
