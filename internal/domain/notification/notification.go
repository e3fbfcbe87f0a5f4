package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Type string

const (
	TypeAssignment Type = "assignment"
	TypeModified   Type = "modified"
	TypeCancelled  Type = "cancelled"
	TypeUnassigned Type = "unassigned"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAssignment, TypeModified, TypeCancelled, TypeUnassigned:
		return true
	}
	return false
}

// Notification is a per-GM audit record. After insert only IsRead, EmailSent and
// EmailSentAt change.
type Notification struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	GMID        uuid.UUID      `gorm:"type:uuid;column:gm_id;not null;index:idx_notification_gm_read,priority:1" json:"gm_id"`
	Type        Type           `gorm:"column:notification_type;type:varchar(20);not null" json:"notification_type"`
	EventID     *uuid.UUID     `gorm:"type:uuid;column:event_id;index" json:"event_id,omitempty"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Message     string         `gorm:"column:message;type:text;not null" json:"message"`
	EventData   datatypes.JSON `gorm:"column:event_data;type:jsonb" json:"event_data,omitempty"`
	IsRead      bool           `gorm:"column:is_read;not null;default:false;index:idx_notification_gm_read,priority:2" json:"is_read"`
	EmailSent   bool           `gorm:"column:email_sent;not null;default:false;index" json:"email_sent"`
	EmailSentAt *time.Time     `gorm:"column:email_sent_at" json:"email_sent_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// DeliveryAttempt records one outbound email attempt for a notification. A pending
// attempt is a lease taken by the sweep before sending; it is resolved once the
// provider answers.
type DeliveryAttempt struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	NotificationID uuid.UUID `gorm:"type:uuid;column:notification_id;not null;index" json:"notification_id"`
	Channel        string    `gorm:"column:channel;not null;default:'email'" json:"channel"`
	Pending        bool      `gorm:"column:pending;not null;default:false" json:"pending"`
	Succeeded      bool      `gorm:"column:succeeded;not null" json:"succeeded"`
	MessageID      string    `gorm:"column:message_id" json:"message_id,omitempty"`
	Error          string    `gorm:"column:error;type:text" json:"error,omitempty"`
	AttemptedAt    time.Time `gorm:"not null;autoCreateTime;index" json:"attempted_at"`
}

func (DeliveryAttempt) TableName() string { return "notification_delivery_attempt" }

func (d *DeliveryAttempt) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Channel == "" {
		d.Channel = "email"
	}
	return nil
}
