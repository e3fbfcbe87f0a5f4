package repos

import (
	"gorm.io/gorm"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos/jobs"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos/notification"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos/profile"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos/scheduling"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

type ActivityRepo = scheduling.ActivityRepo
type AssignmentRepo = scheduling.AssignmentRepo
type GMRepo = scheduling.GMRepo

type NotificationRepo = notification.NotificationRepo

type ProfileRepo = profile.ProfileRepo
type EnsureGMInput = profile.EnsureGMInput
type EnsureGMResult = profile.EnsureGMResult

type MigrationRecordRepo = jobs.MigrationRecordRepo
type AutoAssignRunRepo = jobs.AutoAssignRunRepo

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return scheduling.NewActivityRepo(db, baseLog)
}
func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return scheduling.NewAssignmentRepo(db, baseLog)
}
func NewGMRepo(db *gorm.DB, baseLog *logger.Logger) GMRepo { return scheduling.NewGMRepo(db, baseLog) }

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return notification.NewNotificationRepo(db, baseLog)
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return profile.NewProfileRepo(db, baseLog)
}

func NewMigrationRecordRepo(db *gorm.DB, baseLog *logger.Logger) MigrationRecordRepo {
	return jobs.NewMigrationRecordRepo(db, baseLog)
}
func NewAutoAssignRunRepo(db *gorm.DB, baseLog *logger.Logger) AutoAssignRunRepo {
	return jobs.NewAutoAssignRunRepo(db, baseLog)
}
