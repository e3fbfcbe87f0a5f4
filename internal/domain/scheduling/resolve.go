package scheduling

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// CanonicalView is the precedence-resolved assignment state of one activity.
type CanonicalView struct {
	ActivityID  uuid.UUID   `json:"activity_id"`
	GMIDs       []uuid.UUID `json:"gm_ids"`
	PrimaryGMID *uuid.UUID  `json:"primary_gm_id"`
	Count       int         `json:"count"`
	IsAssigned  bool        `json:"is_assigned"`
	// LegacyFallback is true when the list came from the legacy assigned_gm_id.
	LegacyFallback bool `json:"legacy_fallback"`
}

// Contains reports whether gmID is in the ordered list.
func (v CanonicalView) Contains(gmID uuid.UUID) bool {
	for _, id := range v.GMIDs {
		if id == gmID {
			return true
		}
	}
	return false
}

// Resolve merges the legacy pointer on activity with its assignment rows.
//
// Rows are ordered by assignment_order (missing = 1), ties broken by gm_id. Any row
// with a GM wins over the legacy pointer; the legacy pointer is used as the sole
// entry only when no row names a GM, and as primary only when the list is empty.
// Rows belonging to a different activity are ignored. Resolve never fails.
func Resolve(activity *Activity, rows []Assignment) CanonicalView {
	view := CanonicalView{GMIDs: []uuid.UUID{}}
	var legacy *uuid.UUID
	if activity != nil {
		view.ActivityID = activity.ID
		if activity.AssignedGMID != nil && *activity.AssignedGMID != uuid.Nil {
			id := *activity.AssignedGMID
			legacy = &id
		}
	}

	ordered := make([]Assignment, 0, len(rows))
	for _, r := range rows {
		if activity != nil && r.ActivityID != uuid.Nil && r.ActivityID != activity.ID {
			continue
		}
		ordered = append(ordered, r)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		oi, oj := ordered[i].Order(), ordered[j].Order()
		if oi != oj {
			return oi < oj
		}
		return bytes.Compare(ordered[i].GMID[:], ordered[j].GMID[:]) < 0
	})

	seen := make(map[uuid.UUID]struct{}, len(ordered))
	for _, r := range ordered {
		if r.GMID == uuid.Nil {
			continue
		}
		if _, dup := seen[r.GMID]; dup {
			continue
		}
		seen[r.GMID] = struct{}{}
		view.GMIDs = append(view.GMIDs, r.GMID)
	}

	if len(view.GMIDs) == 0 && legacy != nil {
		view.GMIDs = append(view.GMIDs, *legacy)
		view.LegacyFallback = true
	}

	if len(view.GMIDs) > 0 {
		first := view.GMIDs[0]
		view.PrimaryGMID = &first
	} else if legacy != nil {
		view.PrimaryGMID = legacy
	}
	view.Count = len(view.GMIDs)
	view.IsAssigned = view.Count > 0 || legacy != nil
	return view
}

// ResolveAll resolves many activities against one bulk fetch of rows.
func ResolveAll(activities []*Activity, rows []Assignment) map[uuid.UUID]CanonicalView {
	byActivity := make(map[uuid.UUID][]Assignment, len(activities))
	for _, r := range rows {
		byActivity[r.ActivityID] = append(byActivity[r.ActivityID], r)
	}
	out := make(map[uuid.UUID]CanonicalView, len(activities))
	for _, a := range activities {
		if a == nil {
			continue
		}
		out[a.ID] = Resolve(a, byActivity[a.ID])
	}
	return out
}
