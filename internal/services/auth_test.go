package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/ctxutil"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

func TestAuthResolvesProfileRoleAndGM(t *testing.T) {
	gmID := uuid.New()
	userID := uuid.New()
	gms := newFakeGMRepo()
	profiles := newFakeProfileRepo(gms, &types.Profile{UserID: userID, Role: types.RoleGM, GMID: &gmID})
	svc := NewAuthService(logger.Nop(), "secret", "", profiles, gms)

	tok, err := svc.IssueToken(userID, "gm@example.com", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	ctx, err := svc.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != userID || rd.Role != types.RoleGM {
		t.Fatalf("request data: unexpected %+v", rd)
	}
	if rd.GMID == nil || *rd.GMID != gmID {
		t.Fatalf("GMID: want=%v got=%v", gmID, rd.GMID)
	}
}

func TestAuthFallsBackToGMByUserID(t *testing.T) {
	userID := uuid.New()
	gm := &types.GM{ID: uuid.New(), UserID: &userID, Email: "x@example.com", Name: "X"}
	gms := newFakeGMRepo(gm)
	svc := NewAuthService(logger.Nop(), "secret", "", newFakeProfileRepo(gms), gms)

	tok, _ := svc.IssueToken(userID, "", time.Minute)
	ctx, err := svc.SetContextFromToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd.Role != "user" || rd.GMID == nil || *rd.GMID != gm.ID {
		t.Fatalf("request data: unexpected %+v", rd)
	}
}

func TestAuthRejectsBadTokens(t *testing.T) {
	gms := newFakeGMRepo()
	svc := NewAuthService(logger.Nop(), "secret", "", newFakeProfileRepo(gms), gms)
	other := NewAuthService(logger.Nop(), "other-secret", "", newFakeProfileRepo(gms), gms)

	forged, _ := other.IssueToken(uuid.New(), "", time.Minute)
	defaulted, _ := svc.IssueToken(uuid.New(), "", -time.Minute)
	for name, tok := range map[string]string{"empty": "", "garbage": "abc.def.ghi", "forged": forged} {
		if _, err := svc.SetContextFromToken(context.Background(), tok); !domainagg.IsCode(err, domainagg.CodePermission) {
			t.Fatalf("%s: want permission error, got %v", name, err)
		}
	}
	// A non-positive ttl falls back to one hour, so this token is still valid.
	if _, err := svc.SetContextFromToken(context.Background(), defaulted); err != nil {
		t.Fatalf("default ttl: %v", err)
	}
}
