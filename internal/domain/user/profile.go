package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleGM    = "gm"
	RoleUser  = "user"
)

// Profile is the application-side record of an authenticated user. A profile with
// role "gm" must reference an existing GM record through GMID.
type Profile struct {
	UserID              uuid.UUID  `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	Email               string     `gorm:"column:email;not null;index" json:"email"`
	FirstName           string     `gorm:"column:first_name" json:"first_name"`
	LastName            string     `gorm:"column:last_name" json:"last_name"`
	Role                string     `gorm:"column:role;not null;default:'user';index" json:"role"`
	GMID                *uuid.UUID `gorm:"type:uuid;column:gm_id;index" json:"gm_id,omitempty"`
	DisableGMAutoCreate bool       `gorm:"column:disable_gm_auto_create;not null;default:false" json:"disable_gm_auto_create"`
	CreatedAt           time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string { return "profile" }

func (p *Profile) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.UserID == uuid.Nil {
		p.UserID = uuid.New()
	}
	if p.Role == "" {
		p.Role = RoleUser
	}
	return nil
}
