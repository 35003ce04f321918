package service

import (
	"fmt"
	"testing"

	"github.com/invitearena/invitearena/internal/cache"
	"github.com/invitearena/invitearena/internal/models"
	"github.com/invitearena/invitearena/internal/queue"
	"github.com/invitearena/invitearena/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testCommunityID int64 = 1001

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	// 内存库串行化写入，避免并发用例触发 busy
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Community{}, &models.Participant{}, &models.ReferralEdge{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newContestService(t *testing.T, db *gorm.DB) *ContestService {
	t.Helper()
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client: %v", err)
	}
	return NewContestService(
		repository.NewParticipantRepository(db),
		repository.NewReferralEdgeRepository(db),
		repository.NewCommunityRepository(db),
		cache.NewMemoryCache(128),
		queueClient,
		2,
		8,
	)
}

func newTaskService(t *testing.T, db *gorm.DB, minDelaySeconds int) *TaskService {
	t.Helper()
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client: %v", err)
	}
	return NewTaskService(repository.NewParticipantRepository(db), queueClient, 3, minDelaySeconds)
}

func mustRegister(t *testing.T, svc *ContestService, externalUserID int64, referralCode string) *RegisterResult {
	t.Helper()
	result, err := svc.RegisterOrActivate(RegisterInput{
		ExternalUserID: externalUserID,
		CommunityID:    testCommunityID,
		DisplayName:    fmt.Sprintf("user-%d", externalUserID),
		Username:       fmt.Sprintf("u%d", externalUserID),
		ReferralCode:   referralCode,
	})
	if err != nil {
		t.Fatalf("register %d: %v", externalUserID, err)
	}
	return result
}

func reloadParticipant(t *testing.T, db *gorm.DB, id uint) *models.Participant {
	t.Helper()
	participant, err := repository.NewParticipantRepository(db).GetByID(id)
	if err != nil {
		t.Fatalf("reload participant %d: %v", id, err)
	}
	if participant == nil {
		t.Fatalf("participant %d disappeared", id)
	}
	return participant
}
