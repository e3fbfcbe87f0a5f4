package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GM is a staff member assignable to activities.
type GM struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    *uuid.UUID     `gorm:"type:uuid;column:user_id;uniqueIndex" json:"user_id,omitempty"`
	Email     string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FirstName string         `gorm:"column:first_name" json:"first_name"`
	LastName  string         `gorm:"column:last_name" json:"last_name"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Skills    datatypes.JSON `gorm:"column:skills;type:jsonb" json:"skills,omitempty"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (GM) TableName() string { return "gm" }

func (g *GM) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if strings.TrimSpace(g.Name) == "" {
		g.Name = JoinName(g.FirstName, g.LastName, g.Email)
	}
	return nil
}

func (g *GM) DisplayName() string {
	if g == nil {
		return ""
	}
	if n := strings.TrimSpace(g.Name); n != "" {
		return n
	}
	return JoinName(g.FirstName, g.LastName, g.Email)
}

// JoinName builds "First Last", falling back to the given email.
func JoinName(first, last, fallback string) string {
	n := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if n == "" {
		return strings.TrimSpace(fallback)
	}
	return n
}
