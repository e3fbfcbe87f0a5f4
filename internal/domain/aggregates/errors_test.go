package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(CodeConflict, "assignment.create", "gm already assigned", nil)
	if got := err.Error(); got != "assignment.create: gm already assigned (conflict)" {
		t.Fatalf("Error(): got %q", got)
	}
	if got := Permission("", "admin only").Error(); got != "admin only (permission)" {
		t.Fatalf("Error() without op: got %q", got)
	}
}

func TestCodeOfThroughWrapping(t *testing.T) {
	base := Validation("activity.validate", "start must be before end")
	wrapped := fmt.Errorf("update activity: %w", base)
	if !IsCode(wrapped, CodeValidation) {
		t.Fatalf("IsCode: want validation, got %q", CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Fatalf("CodeOf(plain): want empty")
	}
}

func TestDependencyKeepsCause(t *testing.T) {
	cause := errors.New("smtp down")
	err := Dependency("mail.send", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("Dependency: cause not reachable")
	}
	if !IsCode(err, CodeDependency) {
		t.Fatalf("Dependency: want dependency code, got %q", CodeOf(err))
	}
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("Wrap(nil): want nil")
	}
}
