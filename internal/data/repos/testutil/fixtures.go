package testutil

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
)

func SeedGM(tb testing.TB, tx *gorm.DB, email string) *types.GM {
	tb.Helper()
	gm := &types.GM{
		ID:        uuid.New(),
		Email:     email,
		FirstName: "Game",
		LastName:  "Master",
		IsActive:  true,
	}
	if err := tx.Create(gm).Error; err != nil {
		tb.Fatalf("seed gm: %v", err)
	}
	return gm
}

func SeedActivity(tb testing.TB, tx *gorm.DB, date, start, end string, legacy *uuid.UUID) *types.Activity {
	tb.Helper()
	a := &types.Activity{
		ID:           uuid.New(),
		Title:        "Escape Room " + start,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		ActivityType: "escape_room",
		Status:       "scheduled",
		AssignedGMID: legacy,
	}
	if err := tx.Create(a).Error; err != nil {
		tb.Fatalf("seed activity: %v", err)
	}
	return a
}

func SeedProfile(tb testing.TB, tx *gorm.DB, email, role string, gmID *uuid.UUID) *types.Profile {
	tb.Helper()
	p := &types.Profile{
		UserID:    uuid.New(),
		Email:     email,
		FirstName: "Pat",
		LastName:  "Doe",
		Role:      role,
		GMID:      gmID,
	}
	if err := tx.Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrInt(v int) *int { return &v }
