package service

import (
	"context"
	"time"

	"github.com/invitearena/invitearena/internal/cache"
	"github.com/invitearena/invitearena/internal/logger"
	"github.com/invitearena/invitearena/internal/repository"
)

// RankingService 排行榜服务
// 榜单从存储按统一全序现算，redis 快照只做读侧降压，命中与否不影响结果语义。
type RankingService struct {
	participantRepo repository.ParticipantRepository
	snapshotTTL     time.Duration
	limit           int
}

// NewRankingService 创建排行榜服务
func NewRankingService(participantRepo repository.ParticipantRepository, cacheSeconds, limit int) *RankingService {
	if limit <= 0 {
		limit = 10
	}
	return &RankingService{
		participantRepo: participantRepo,
		snapshotTTL:     time.Duration(cacheSeconds) * time.Second,
		limit:           limit,
	}
}

// GetLeaderboard 获取排行榜
// limit 未给定或超出配置上限时取配置值；快照始终按上限缓存，小于上限时就地截断。
func (s *RankingService) GetLeaderboard(ctx context.Context, communityID int64, limit int) (*cache.LeaderboardSnapshot, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	if s.snapshotTTL > 0 {
		snapshot, hit, err := cache.GetLeaderboardSnapshot(ctx, communityID)
		if err != nil {
			logger.Warnw("leaderboard_cache_read_failed", "community_id", communityID, "error", err)
		} else if hit {
			return trimSnapshot(snapshot, limit), nil
		}
	}

	snapshot, err := s.BuildSnapshot(communityID)
	if err != nil {
		return nil, err
	}
	if s.snapshotTTL > 0 {
		if err := cache.SetLeaderboardSnapshot(ctx, snapshot, s.snapshotTTL); err != nil {
			logger.Warnw("leaderboard_cache_write_failed", "community_id", communityID, "error", err)
		}
	}
	return trimSnapshot(snapshot, limit), nil
}

func trimSnapshot(snapshot *cache.LeaderboardSnapshot, limit int) *cache.LeaderboardSnapshot {
	if snapshot == nil || limit <= 0 || len(snapshot.Entries) <= limit {
		return snapshot
	}
	trimmed := *snapshot
	trimmed.Entries = snapshot.Entries[:limit]
	return &trimmed
}

// BuildSnapshot 现算排行榜快照
func (s *RankingService) BuildSnapshot(communityID int64) (*cache.LeaderboardSnapshot, error) {
	participants, err := s.participantRepo.ListActiveRanked(communityID, s.limit)
	if err != nil {
		return nil, err
	}
	entries := make([]cache.LeaderboardEntry, 0, len(participants))
	for i, p := range participants {
		entries = append(entries, cache.LeaderboardEntry{
			Position:       i + 1,
			ExternalUserID: p.ExternalUserID,
			DisplayName:    p.DisplayName,
			Username:       p.Username,
			Points:         p.Points,
			ReferralCount:  p.ReferralCount,
		})
	}
	return &cache.LeaderboardSnapshot{
		CommunityID: communityID,
		Entries:     entries,
		GeneratedAt: time.Now().Unix(),
	}, nil
}

// RankResult 名次查询结果
type RankResult struct {
	Rank   int // 1 起；0 表示已退出未上榜
	Total  int64
	Points int
}

// GetRank 查询参与者名次
// 名次与榜单共用同一排序表达式，保证两个入口对同一数据给出一致结果。
func (s *RankingService) GetRank(communityID, externalUserID int64) (*RankResult, error) {
	participant, err := s.participantRepo.GetByExternalID(communityID, externalUserID)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, ErrNotFound
	}

	total, err := s.participantRepo.CountActive(communityID)
	if err != nil {
		return nil, err
	}
	if !participant.IsActive {
		return &RankResult{Rank: 0, Total: total, Points: participant.Points}, nil
	}
	rank, err := s.participantRepo.ActiveRank(communityID, participant.ID)
	if err != nil {
		return nil, err
	}
	return &RankResult{Rank: rank, Total: total, Points: participant.Points}, nil
}
