package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/invitearena/invitearena/internal/constants"
	"github.com/invitearena/invitearena/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testCommunityID int64 = 2001

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
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Community{}, &models.Participant{}, &models.ReferralEdge{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createParticipant(t *testing.T, repo ParticipantRepository, externalUserID int64, code string) *models.Participant {
	t.Helper()
	participant := &models.Participant{
		ExternalUserID: externalUserID,
		CommunityID:    testCommunityID,
		ReferralCode:   code,
		IsActive:       true,
		JoinedAt:       time.Now(),
	}
	if err := repo.Create(participant); err != nil {
		t.Fatalf("create participant %d: %v", externalUserID, err)
	}
	return participant
}

func TestCreateRejectsDuplicateIdentity(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)

	createParticipant(t, repo, 100, "CODEAA11")
	err := repo.Create(&models.Participant{
		ExternalUserID: 100,
		CommunityID:    testCommunityID,
		ReferralCode:   "CODEBB22",
		IsActive:       true,
		JoinedAt:       time.Now(),
	})
	if err == nil {
		t.Fatal("duplicate (community, external user) must violate the unique index")
	}
}

func TestCreatePreservesExplicitFalseFlags(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)

	// 插入时必须原样落库显式 false，不允许被列默认值吃掉
	inactive := &models.Participant{
		ExternalUserID: 100,
		CommunityID:    testCommunityID,
		ReferralCode:   "CODEAA11",
		IsActive:       false,
		JoinedAt:       time.Now(),
	}
	if err := repo.Create(inactive); err != nil {
		t.Fatalf("create inactive participant: %v", err)
	}
	reloaded, err := repo.GetByID(inactive.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.IsActive {
		t.Fatal("participant seeded inactive came back active")
	}

	communityRepo := NewCommunityRepository(db)
	disabled := &models.Community{ChatID: testCommunityID, Title: "closed", IsEnabled: false}
	if err := communityRepo.Create(disabled); err != nil {
		t.Fatalf("create disabled community: %v", err)
	}
	community, err := communityRepo.GetByChatID(testCommunityID)
	if err != nil {
		t.Fatalf("reload community: %v", err)
	}
	if community == nil || community.IsEnabled {
		t.Fatalf("community seeded disabled came back enabled: %+v", community)
	}
}

func TestGetByReferralCodeNormalizesCase(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)

	created := createParticipant(t, repo, 100, "CODEAA11")
	found, err := repo.GetByReferralCode("  codeaa11 ")
	if err != nil {
		t.Fatalf("get by code: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatal("lowercase code with padding must resolve")
	}

	missing, err := repo.GetByReferralCode("NOPE0000")
	if err != nil {
		t.Fatalf("get missing code: %v", err)
	}
	if missing != nil {
		t.Fatal("unknown code must resolve to nil without error")
	}
}

func TestCompleteTaskConditional(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	participant := createParticipant(t, repo, 100, "CODEAA11")

	now := time.Now()
	applied, err := repo.CompleteTask(participant.ID, 3, now)
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if !applied {
		t.Fatal("first completion must apply")
	}

	applied, err = repo.CompleteTask(participant.ID, 3, now)
	if err != nil {
		t.Fatalf("repeat complete task: %v", err)
	}
	if applied {
		t.Fatal("second completion must be rejected by the conditional update")
	}

	reloaded, err := repo.GetByID(participant.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Points != 3 || !reloaded.TaskCompleted {
		t.Fatalf("participant = points %d completed %v, want 3/true", reloaded.Points, reloaded.TaskCompleted)
	}
}

func TestDeactivateAndReactivateConditional(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	participant := createParticipant(t, repo, 100, "CODEAA11")

	now := time.Now()
	applied, err := repo.Deactivate(participant.ID, now)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if !applied {
		t.Fatal("active participant must deactivate")
	}
	applied, err = repo.Deactivate(participant.ID, now)
	if err != nil {
		t.Fatalf("repeat deactivate: %v", err)
	}
	if applied {
		t.Fatal("repeated deactivation must be a no-op")
	}

	applied, err = repo.Reactivate(participant.ID, ProfileUpdate{DisplayName: "Renamed"}, now)
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if !applied {
		t.Fatal("inactive participant must reactivate")
	}
	applied, err = repo.Reactivate(participant.ID, ProfileUpdate{}, now)
	if err != nil {
		t.Fatalf("repeat reactivate: %v", err)
	}
	if applied {
		t.Fatal("repeated reactivation must be a no-op")
	}

	reloaded, err := repo.GetByID(participant.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.IsActive || reloaded.DisplayName != "Renamed" {
		t.Fatalf("participant = active %v name %q, want true/Renamed", reloaded.IsActive, reloaded.DisplayName)
	}
}

func TestReferralAwardAndRevoke(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	referrer := createParticipant(t, repo, 100, "CODEAA11")

	first := time.Now().Add(-time.Hour)
	applied, err := repo.ApplyReferralAward(referrer.ID, 2, first)
	if err != nil {
		t.Fatalf("first award: %v", err)
	}
	if !applied {
		t.Fatal("active referrer must be awarded")
	}
	second := time.Now()
	if applied, err = repo.ApplyReferralAward(referrer.ID, 2, second); err != nil || !applied {
		t.Fatalf("second award: applied=%v err=%v", applied, err)
	}

	reloaded, err := repo.GetByID(referrer.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Points != 4 || reloaded.ReferralCount != 2 {
		t.Fatalf("ledger = points %d count %d, want 4/2", reloaded.Points, reloaded.ReferralCount)
	}
	if reloaded.FirstReferralPointAt == nil || !reloaded.FirstReferralPointAt.Equal(first) {
		t.Fatal("first referral point timestamp must keep the earliest award time")
	}

	if err := repo.RevokeReferralAward(referrer.ID, 2, time.Now()); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	reloaded, err = repo.GetByID(referrer.ID)
	if err != nil {
		t.Fatalf("reload after revoke: %v", err)
	}
	if reloaded.Points != 2 || reloaded.ReferralCount != 1 {
		t.Fatalf("ledger after revoke = points %d count %d, want 2/1", reloaded.Points, reloaded.ReferralCount)
	}
	if reloaded.FirstReferralPointAt == nil {
		t.Fatal("revocation must not clear the first referral point timestamp")
	}
}

func TestReferralAwardSkipsDepartedReferrer(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)
	referrer := createParticipant(t, repo, 100, "CODEAA11")

	now := time.Now()
	if applied, err := repo.Deactivate(referrer.ID, now); err != nil || !applied {
		t.Fatalf("deactivate: applied=%v err=%v", applied, err)
	}

	applied, err := repo.ApplyReferralAward(referrer.ID, 2, now)
	if err != nil {
		t.Fatalf("award: %v", err)
	}
	if applied {
		t.Fatal("departed referrer must not be awarded")
	}
	reloaded, err := repo.GetByID(referrer.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Points != 0 || reloaded.ReferralCount != 0 {
		t.Fatalf("ledger = points %d count %d, want untouched 0/0", reloaded.Points, reloaded.ReferralCount)
	}
}

func TestActiveRankMatchesListOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewParticipantRepository(db)

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	seeds := []*models.Participant{
		{ExternalUserID: 1, CommunityID: testCommunityID, ReferralCode: "CODEAA11", Points: 5, IsActive: true, JoinedAt: base},
		{ExternalUserID: 2, CommunityID: testCommunityID, ReferralCode: "CODEBB22", Points: 7, IsActive: true, JoinedAt: base},
		{ExternalUserID: 3, CommunityID: testCommunityID, ReferralCode: "CODECC33", Points: 7, IsActive: true, JoinedAt: base.Add(time.Minute)},
		{ExternalUserID: 4, CommunityID: testCommunityID, ReferralCode: "CODEDD44", Points: 9, IsActive: false, JoinedAt: base},
	}
	for _, p := range seeds {
		if err := repo.Create(p); err != nil {
			t.Fatalf("seed participant %d: %v", p.ExternalUserID, err)
		}
	}

	ranked, err := repo.ListActiveRanked(testCommunityID, 0)
	if err != nil {
		t.Fatalf("list ranked: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("ranked rows = %d, want 3 (inactive excluded)", len(ranked))
	}
	for position, row := range ranked {
		rank, err := repo.ActiveRank(testCommunityID, row.ID)
		if err != nil {
			t.Fatalf("rank for %d: %v", row.ID, err)
		}
		if rank != position+1 {
			t.Fatalf("rank(%d) = %d, want %d (must match list order)", row.ID, rank, position+1)
		}
	}

	inactiveRank, err := repo.ActiveRank(testCommunityID, seeds[3].ID)
	if err != nil {
		t.Fatalf("rank for inactive: %v", err)
	}
	if inactiveRank != 0 {
		t.Fatalf("inactive rank = %d, want 0", inactiveRank)
	}
}

func TestEdgeMarkLeftConditional(t *testing.T) {
	db := newTestDB(t)
	participantRepo := NewParticipantRepository(db)
	edgeRepo := NewReferralEdgeRepository(db)

	referrer := createParticipant(t, participantRepo, 100, "CODEAA11")
	referred := createParticipant(t, participantRepo, 200, "CODEBB22")

	edge := &models.ReferralEdge{
		ReferrerID:     referrer.ID,
		ReferredUserID: referred.ID,
		CommunityID:    testCommunityID,
		Status:         constants.ReferralEdgeStatusActive,
		PointsAwarded:  2,
		CreatedAt:      time.Now(),
	}
	if err := edgeRepo.Create(edge); err != nil {
		t.Fatalf("create edge: %v", err)
	}

	now := time.Now()
	marked, err := edgeRepo.MarkLeft(edge.ID, now)
	if err != nil {
		t.Fatalf("mark left: %v", err)
	}
	if !marked {
		t.Fatal("active edge must be markable")
	}
	marked, err = edgeRepo.MarkLeft(edge.ID, now)
	if err != nil {
		t.Fatalf("repeat mark left: %v", err)
	}
	if marked {
		t.Fatal("repeated mark must be a no-op")
	}

	count, err := edgeRepo.CountActiveByReferrer(referrer.ID)
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	if count != 0 {
		t.Fatalf("active edges = %d, want 0", count)
	}
	sum, err := edgeRepo.SumActivePointsByReferrer(referrer.ID)
	if err != nil {
		t.Fatalf("sum active: %v", err)
	}
	if sum != 0 {
		t.Fatalf("active points = %d, want 0", sum)
	}
}
