package main

import (
	"fmt"
	"time"

	"github.com/invitearena/invitearena/internal/config"
	"github.com/invitearena/invitearena/internal/constants"
	"github.com/invitearena/invitearena/internal/logger"
	"github.com/invitearena/invitearena/internal/models"
	"github.com/invitearena/invitearena/internal/service"
)

const demoCommunityID int64 = -1001234567890

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 演示社区
	var community models.Community
	if err := models.DB.Where("chat_id = ?", demoCommunityID).First(&community).Error; err != nil {
		community = models.Community{
			ChatID:    demoCommunityID,
			Title:     "InviteArena Demo Arena",
			IsEnabled: true,
		}
		if err := models.DB.Create(&community).Error; err != nil {
			stdLog.Fatalf("Failed to create demo community: %v", err)
		}
		stdLog.Printf("Created community: %s", community.Title)
	} else {
		stdLog.Printf("Community already exists: %s", community.Title)
	}

	now := time.Now()
	firstAward := now.Add(-36 * time.Hour)
	laterAward := now.Add(-12 * time.Hour)

	// 演示参与者：alice 邀请了 bob 和 carol，dave 无人邀请且已完成任务
	participants := []models.Participant{
		{
			ExternalUserID: 1101,
			CommunityID:    demoCommunityID,
			ReferralCode:   "DEMOAL01",
			DisplayName:    "Alice",
			Username:       "alice_demo",
			Points:         4,
			ReferralCount:  2,
			IsActive:       true,
			FirstReferralPointAt: &firstAward,
			JoinedAt:       now.Add(-72 * time.Hour),
		},
		{
			ExternalUserID: 1102,
			CommunityID:    demoCommunityID,
			ReferralCode:   "DEMOBO02",
			DisplayName:    "Bob",
			Username:       "bob_demo",
			Points:         3,
			TaskCompleted:  true,
			IsActive:       true,
			JoinedAt:       now.Add(-36 * time.Hour),
		},
		{
			ExternalUserID: 1103,
			CommunityID:    demoCommunityID,
			ReferralCode:   "DEMOCA03",
			DisplayName:    "Carol",
			Username:       "carol_demo",
			IsActive:       true,
			JoinedAt:       now.Add(-12 * time.Hour),
		},
		{
			ExternalUserID: 1104,
			CommunityID:    demoCommunityID,
			ReferralCode:   "DEMODA04",
			DisplayName:    "Dave",
			Username:       "dave_demo",
			Points:         3,
			TaskCompleted:  true,
			IsActive:       true,
			JoinedAt:       now.Add(-60 * time.Hour),
		},
	}

	ids := map[int64]uint{}
	for _, p := range participants {
		var existing models.Participant
		if err := models.DB.
			Where("community_id = ? AND external_user_id = ?", p.CommunityID, p.ExternalUserID).
			First(&existing).Error; err != nil {
			if err := models.DB.Create(&p).Error; err != nil {
				stdLog.Printf("Failed to create participant %s: %v", p.Username, err)
				continue
			}
			stdLog.Printf("Created participant: %s", p.Username)
			ids[p.ExternalUserID] = p.ID
		} else {
			stdLog.Printf("Participant already exists: %s", existing.Username)
			ids[existing.ExternalUserID] = existing.ID
		}
	}

	// 邀请边：alice -> bob（首个）、alice -> carol
	edges := []struct {
		referrer int64
		referred int64
		created  time.Time
	}{
		{referrer: 1101, referred: 1102, created: firstAward},
		{referrer: 1101, referred: 1103, created: laterAward},
	}
	for _, e := range edges {
		referrerID, referredID := ids[e.referrer], ids[e.referred]
		if referrerID == 0 || referredID == 0 {
			continue
		}
		var existing models.ReferralEdge
		if err := models.DB.Where("referred_user_id = ?", referredID).First(&existing).Error; err != nil {
			edge := models.ReferralEdge{
				ReferrerID:     referrerID,
				ReferredUserID: referredID,
				CommunityID:    demoCommunityID,
				Status:         constants.ReferralEdgeStatusActive,
				PointsAwarded:  constants.DefaultReferralPoints,
				CreatedAt:      e.created,
			}
			if err := models.DB.Create(&edge).Error; err != nil {
				stdLog.Printf("Failed to create referral edge %d -> %d: %v", e.referrer, e.referred, err)
			} else {
				stdLog.Printf("Created referral edge: %d -> %d", e.referrer, e.referred)
			}
		} else {
			stdLog.Printf("Referral edge already exists for referred user %d", e.referred)
		}
	}

	// 为协作方签发一枚服务令牌，便于本地调试 API
	tokenService := service.NewTokenService(cfg.API.JWTSecret, cfg.API.ExpireHours)
	token, err := tokenService.IssueServiceToken("local-dev")
	if err != nil {
		stdLog.Printf("Failed to issue service token: %v", err)
	}

	fmt.Println("\n✅ Demo data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 1 Community")
	fmt.Println("- 4 Participants (alice referred bob & carol)")
	fmt.Println("- 2 Active referral edges")
	if token != "" {
		fmt.Println("\nService token for local API calls:")
		fmt.Println(token)
	}
}
