package scheduling

import (
	"testing"

	"github.com/google/uuid"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos/testutil"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
)

func TestGMRepo(t *testing.T) {
	db, dbc := testutil.DBC(t)
	repo := NewGMRepo(db, testutil.Logger(t))

	userID := uuid.New()
	created, err := repo.Create(dbc, []*types.GM{
		{Email: "  Alice@Example.com ", FirstName: "Alice", LastName: "Smith", UserID: &userID},
		{Email: "bob@example.com", FirstName: "Bob"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created[0].Email != "alice@example.com" || created[0].Name != "Alice Smith" {
		t.Fatalf("Create: email/name not normalized: %+v", created[0])
	}

	byEmail, err := repo.GetByEmail(dbc, "ALICE@example.com")
	if err != nil || byEmail == nil || byEmail.ID != created[0].ID {
		t.Fatalf("GetByEmail: got=%+v err=%v", byEmail, err)
	}
	byUser, err := repo.GetByUserID(dbc, userID)
	if err != nil || byUser == nil || byUser.ID != created[0].ID {
		t.Fatalf("GetByUserID: got=%+v err=%v", byUser, err)
	}
	ids, err := repo.ListIDs(dbc)
	if err != nil || len(ids) < 2 {
		t.Fatalf("ListIDs: len=%d err=%v", len(ids), err)
	}
	many, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID, created[1].ID})
	if err != nil || len(many) != 2 {
		t.Fatalf("GetByIDs: len=%d err=%v", len(many), err)
	}

	if _, err := repo.Create(dbc, []*types.GM{{Email: "bob@example.com"}}); err == nil {
		t.Fatalf("Create duplicate email: expected error")
	}
}
