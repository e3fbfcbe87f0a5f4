package scheduling

import (
	"testing"

	"github.com/google/uuid"

	dataagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos/testutil"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
)

func TestAssignmentRepo(t *testing.T) {
	db, dbc := testutil.DBC(t)
	repo := NewAssignmentRepo(db, testutil.Logger(t))

	gmA := testutil.SeedGM(t, dbc.Tx, "a@example.com")
	gmB := testutil.SeedGM(t, dbc.Tx, "b@example.com")
	act := testutil.SeedActivity(t, dbc.Tx, "2025-01-01", "14:00", "16:00", nil)

	if max, err := repo.MaxOrder(dbc, act.ID); err != nil || max != 0 {
		t.Fatalf("MaxOrder empty: max=%d err=%v", max, err)
	}

	if _, err := repo.Create(dbc, &types.Assignment{ActivityID: act.ID, GMID: gmB.ID, AssignmentOrder: testutil.PtrInt(2)}); err != nil {
		t.Fatalf("Create B: %v", err)
	}
	if _, err := repo.Create(dbc, &types.Assignment{ActivityID: act.ID, GMID: gmA.ID, AssignmentOrder: testutil.PtrInt(1)}); err != nil {
		t.Fatalf("Create A: %v", err)
	}

	_, err := repo.Create(dbc, &types.Assignment{ActivityID: act.ID, GMID: gmA.ID, AssignmentOrder: testutil.PtrInt(3)})
	if err == nil {
		t.Fatalf("duplicate Create: expected error")
	}
	if mapped := dataagg.MapError("assignment.create", err); !domainagg.IsCode(mapped, domainagg.CodeConflict) {
		t.Fatalf("duplicate Create: want conflict, got %q (%v)", domainagg.CodeOf(mapped), err)
	}

	rows, err := repo.ListByActivity(dbc, act.ID)
	if err != nil {
		t.Fatalf("ListByActivity: %v", err)
	}
	if len(rows) != 2 || rows[0].GMID != gmA.ID || rows[1].GMID != gmB.ID {
		t.Fatalf("ListByActivity: unexpected order %+v", rows)
	}

	if max, err := repo.MaxOrder(dbc, act.ID); err != nil || max != 2 {
		t.Fatalf("MaxOrder: max=%d err=%v", max, err)
	}

	other := testutil.SeedActivity(t, dbc.Tx, "2025-01-02", "10:00", "11:00", nil)
	if _, err := repo.Create(dbc, &types.Assignment{ActivityID: other.ID, GMID: gmA.ID}); err != nil {
		t.Fatalf("Create other: %v", err)
	}
	bulk, err := repo.ListByActivities(dbc, []uuid.UUID{act.ID, other.ID})
	if err != nil || len(bulk) != 3 {
		t.Fatalf("ListByActivities: len=%d err=%v", len(bulk), err)
	}
	byGM, err := repo.ListByGM(dbc, gmA.ID)
	if err != nil || len(byGM) != 2 {
		t.Fatalf("ListByGM: len=%d err=%v", len(byGM), err)
	}

	deleted, err := repo.Delete(dbc, act.ID, gmA.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = repo.Delete(dbc, act.ID, gmA.ID)
	if err != nil || deleted {
		t.Fatalf("Delete again: deleted=%v err=%v", deleted, err)
	}
	if rows, _ := repo.ListByActivity(dbc, act.ID); len(rows) != 1 || rows[0].GMID != gmB.ID {
		t.Fatalf("after Delete: unexpected %+v", rows)
	}
}
