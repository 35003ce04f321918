package cache

import (
	"context"
	"fmt"
	"time"
)

// LeaderboardEntry 排行榜快照单行
type LeaderboardEntry struct {
	Position       int    `json:"position"`
	ExternalUserID int64  `json:"external_user_id"`
	DisplayName    string `json:"display_name"`
	Username       string `json:"username"`
	Points         int    `json:"points"`
	ReferralCount  int    `json:"referral_count"`
}

// LeaderboardSnapshot 排行榜快照
// 周期发布与查询接口共用，避免重复跑排序查询。
type LeaderboardSnapshot struct {
	CommunityID int64              `json:"community_id"`
	Entries     []LeaderboardEntry `json:"entries"`
	GeneratedAt int64              `json:"generated_at"`
}

func leaderboardKey(communityID int64) string {
	return fmt.Sprintf("leaderboard:%d", communityID)
}

// GetLeaderboardSnapshot 获取排行榜快照
func GetLeaderboardSnapshot(ctx context.Context, communityID int64) (*LeaderboardSnapshot, bool, error) {
	if communityID == 0 {
		return nil, false, nil
	}
	var snapshot LeaderboardSnapshot
	hit, err := GetJSON(ctx, leaderboardKey(communityID), &snapshot)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &snapshot, true, nil
}

// SetLeaderboardSnapshot 写入排行榜快照
func SetLeaderboardSnapshot(ctx context.Context, snapshot *LeaderboardSnapshot, ttl time.Duration) error {
	if snapshot == nil || snapshot.CommunityID == 0 {
		return nil
	}
	return SetJSON(ctx, leaderboardKey(snapshot.CommunityID), snapshot, ttl)
}

// DelLeaderboardSnapshot 删除排行榜快照
func DelLeaderboardSnapshot(ctx context.Context, communityID int64) error {
	if communityID == 0 {
		return nil
	}
	return Del(ctx, leaderboardKey(communityID))
}
