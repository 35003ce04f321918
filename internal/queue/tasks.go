package queue

import (
	"encoding/json"

	"github.com/invitearena/invitearena/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskReferralAwarded 邀请积分到账通知任务
	TaskReferralAwarded = constants.TaskReferralAwarded
	// TaskTaskCompleted 一次性任务完成通知任务
	TaskTaskCompleted = constants.TaskTaskCompleted
	// TaskParticipantDeparted 参与者退出通知任务
	TaskParticipantDeparted = constants.TaskParticipantDeparted
	// TaskLeaderboardPublish 排行榜发布任务
	TaskLeaderboardPublish = constants.TaskLeaderboardPublish
)

// RevokedReferral 退出级联中被回收的一笔邀请积分
type RevokedReferral struct {
	ReferrerID uint `json:"referrer_id"`
	Delta      int  `json:"delta"`
}

// ReferralAwardedPayload 邀请积分到账事件载荷
type ReferralAwardedPayload struct {
	EventID        string `json:"event_id"`
	CommunityID    int64  `json:"community_id"`
	ReferrerID     uint   `json:"referrer_id"`
	ReferredUserID uint   `json:"referred_user_id"`
	NewPointTotal  int    `json:"new_point_total"`
}

// TaskCompletedPayload 任务完成事件载荷
type TaskCompletedPayload struct {
	EventID       string `json:"event_id"`
	CommunityID   int64  `json:"community_id"`
	ParticipantID uint   `json:"participant_id"`
	NewPointTotal int    `json:"new_point_total"`
}

// ParticipantDepartedPayload 参与者退出事件载荷
type ParticipantDepartedPayload struct {
	EventID          string            `json:"event_id"`
	CommunityID      int64             `json:"community_id"`
	ParticipantID    uint              `json:"participant_id"`
	RevokedReferrals []RevokedReferral `json:"revoked_referrals"`
}

// LeaderboardPublishPayload 排行榜发布任务载荷
type LeaderboardPublishPayload struct {
	EventID     string `json:"event_id"`
	CommunityID int64  `json:"community_id"`
}

// NewReferralAwardedTask 创建邀请积分到账任务
func NewReferralAwardedTask(payload ReferralAwardedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReferralAwarded, body), nil
}

// NewTaskCompletedTask 创建任务完成通知任务
func NewTaskCompletedTask(payload TaskCompletedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTaskCompleted, body), nil
}

// NewParticipantDepartedTask 创建参与者退出通知任务
func NewParticipantDepartedTask(payload ParticipantDepartedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskParticipantDeparted, body), nil
}

// NewLeaderboardPublishTask 创建排行榜发布任务
func NewLeaderboardPublishTask(payload LeaderboardPublishPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeaderboardPublish, body), nil
}
