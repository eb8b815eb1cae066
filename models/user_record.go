package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRecord is the conversation and profile state of one LINE user
type UserRecord struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID string             `bson:"user_id" json:"user_id"`
	Step   Step               `bson:"step" json:"step"`

	// Profile
	RealName        string `bson:"real_name,omitempty" json:"real_name,omitempty"`
	NickName        string `bson:"nick_name,omitempty" json:"nick_name,omitempty"`
	Age             int    `bson:"age,omitempty" json:"age,omitempty"`
	Birthday        string `bson:"birthday,omitempty" json:"birthday,omitempty"` // DD/MM/YYYY as typed
	BirthdaySkipped bool   `bson:"birthday_skipped,omitempty" json:"birthday_skipped,omitempty"`
	Department      string `bson:"department,omitempty" json:"department,omitempty"`

	Moderation    Moderation     `bson:"moderation" json:"moderation"`
	PendingReport *PendingReport `bson:"pending_report,omitempty" json:"pending_report,omitempty"`

	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
	LastActive   time.Time  `bson:"last_active" json:"last_active"`
	RegisteredAt *time.Time `bson:"registered_at,omitempty" json:"registered_at,omitempty"`
}

// Moderation holds the escalation counters for a user
type Moderation struct {
	BadCount     int        `bson:"bad_count" json:"bad_count"`
	BlockedUntil *time.Time `bson:"blocked_until,omitempty" json:"blocked_until,omitempty"`
}

// PendingReport is the issue report being collected in the report sub-flow
type PendingReport struct {
	Title         string `bson:"title,omitempty" json:"title,omitempty"`
	Detail        string `bson:"detail,omitempty" json:"detail,omitempty"`
	PhotoReceived bool   `bson:"photo_received" json:"photo_received"`
}

// NewUserRecord creates the record for a first-contact user at the start of the collection pass
func NewUserRecord(userID string, now time.Time) *UserRecord {
	return &UserRecord{
		UserID:     userID,
		Step:       Collect(FieldRealName),
		CreatedAt:  now,
		UpdatedAt:  now,
		LastActive: now,
	}
}

// Clone returns a deep copy so a transition can be computed without touching the stored value
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	c := *u
	if u.Moderation.BlockedUntil != nil {
		t := *u.Moderation.BlockedUntil
		c.Moderation.BlockedUntil = &t
	}
	if u.PendingReport != nil {
		r := *u.PendingReport
		c.PendingReport = &r
	}
	if u.RegisteredAt != nil {
		t := *u.RegisteredAt
		c.RegisteredAt = &t
	}
	return &c
}

// ClearProfile wipes every profile field and any pending report
func (u *UserRecord) ClearProfile() {
	u.RealName = ""
	u.NickName = ""
	u.Age = 0
	u.Birthday = ""
	u.BirthdaySkipped = false
	u.Department = ""
	u.PendingReport = nil
	u.RegisteredAt = nil
}

// IsRegistered reports whether the user has completed the collection pass at least once
func (u *UserRecord) IsRegistered() bool {
	return u.RegisteredAt != nil
}
