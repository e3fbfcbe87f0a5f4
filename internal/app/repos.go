package app

import (
	"gorm.io/gorm"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

type Repos struct {
	Activity        repos.ActivityRepo
	Assignment      repos.AssignmentRepo
	GM              repos.GMRepo
	Notification    repos.NotificationRepo
	Profile         repos.ProfileRepo
	MigrationRecord repos.MigrationRecordRepo
	AutoAssignRun   repos.AutoAssignRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Activity:        repos.NewActivityRepo(db, log),
		Assignment:      repos.NewAssignmentRepo(db, log),
		GM:              repos.NewGMRepo(db, log),
		Notification:    repos.NewNotificationRepo(db, log),
		Profile:         repos.NewProfileRepo(db, log),
		MigrationRecord: repos.NewMigrationRecordRepo(db, log),
		AutoAssignRun:   repos.NewAutoAssignRunRepo(db, log),
	}
}
