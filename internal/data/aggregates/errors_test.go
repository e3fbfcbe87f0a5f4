package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_UniqueViolation(t *testing.T) {
	cases := []error{
		&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"},
		fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey),
		errors.New("UNIQUE constraint failed: activity_assignment.activity_id, activity_assignment.gm_id"),
		ConflictError("stale"),
	}
	for _, in := range cases {
		if err := MapError("op", in); !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("MapError(%v): want conflict got %q", in, domainagg.CodeOf(err))
		}
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_RetryableAndDependency(t *testing.T) {
	if err := MapError("op", context.DeadlineExceeded); !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("deadline: want retryable got %q", domainagg.CodeOf(err))
	}
	if err := MapError("op", &pgconn.PgError{Code: "40P01"}); !domainagg.IsCode(err, domainagg.CodeRetryable) {
		t.Fatalf("deadlock: want retryable got %q", domainagg.CodeOf(err))
	}
	if err := MapError("op", errors.New("connection refused")); !domainagg.IsCode(err, domainagg.CodeDependency) {
		t.Fatalf("connection: want dependency got %q", domainagg.CodeOf(err))
	}
}

func TestMapError_PassthroughCodedError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodePermission, "op", "admin only", nil)
	if out := MapError("other", in); out != in {
		t.Fatalf("expected passthrough coded error")
	}
	if MapError("op", nil) != nil {
		t.Fatalf("MapError(nil): want nil")
	}
}
