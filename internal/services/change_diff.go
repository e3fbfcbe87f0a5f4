package services

import (
	"fmt"
	"strings"

	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
)

// ChangeLines describes, one line per field, how updated differs from original.
// Description changes are reported without their content.
func ChangeLines(original, updated *types.Activity) []string {
	if original == nil || updated == nil {
		return []string{}
	}
	lines := []string{}
	if a, b := strings.TrimSpace(original.Title), strings.TrimSpace(updated.Title); a != b {
		lines = append(lines, fmt.Sprintf("Title: %q -> %q", a, b))
	}
	if strings.TrimSpace(original.Description) != strings.TrimSpace(updated.Description) {
		lines = append(lines, "Description updated")
	}
	if a, b := strings.TrimSpace(original.Date), strings.TrimSpace(updated.Date); a != b {
		lines = append(lines, fmt.Sprintf("Date: %s -> %s", a, b))
	}
	if a, b := strings.TrimSpace(original.StartTime), strings.TrimSpace(updated.StartTime); a != b {
		lines = append(lines, fmt.Sprintf("Start time: %s -> %s", a, b))
	}
	if a, b := strings.TrimSpace(original.EndTime), strings.TrimSpace(updated.EndTime); a != b {
		lines = append(lines, fmt.Sprintf("End time: %s -> %s", a, b))
	}
	// Duration falls back to end-start when none is stored.
	a, aok := original.EffectiveDuration()
	b, bok := updated.EffectiveDuration()
	if a != b || aok != bok {
		lines = append(lines, fmt.Sprintf("Duration: %s -> %s", minutesLabel(a, aok), minutesLabel(b, bok)))
	}
	return lines
}

func sameIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func minutesLabel(v int, ok bool) string {
	if !ok {
		return "not set"
	}
	return fmt.Sprintf("%d min", v)
}
