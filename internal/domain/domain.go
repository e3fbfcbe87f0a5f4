package domain

import (
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/jobs"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/notification"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/scheduling"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/user"
)

type Activity = scheduling.Activity
type Assignment = scheduling.Assignment
type GM = scheduling.GM
type CanonicalView = scheduling.CanonicalView

type Notification = notification.Notification
type NotificationType = notification.Type
type DeliveryAttempt = notification.DeliveryAttempt

type Profile = user.Profile

type AutoAssignRun = jobs.AutoAssignRun
type MigrationRecord = jobs.MigrationRecord

const (
	NotificationAssignment = notification.TypeAssignment
	NotificationModified   = notification.TypeModified
	NotificationCancelled  = notification.TypeCancelled
	NotificationUnassigned = notification.TypeUnassigned

	RoleAdmin = user.RoleAdmin
	RoleGM    = user.RoleGM
)

// Models lists every persisted type, in migration order.
func Models() []interface{} {
	return []interface{}{
		&user.Profile{},
		&scheduling.GM{},
		&scheduling.Activity{},
		&scheduling.Assignment{},
		&notification.Notification{},
		&notification.DeliveryAttempt{},
		&jobs.AutoAssignRun{},
		&jobs.MigrationRecord{},
	}
}
