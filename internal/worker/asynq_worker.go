package worker

import (
	"context"
	"encoding/json"

	"github.com/invitearena/invitearena/internal/cache"
	"github.com/invitearena/invitearena/internal/logger"
	"github.com/invitearena/invitearena/internal/provider"
	"github.com/invitearena/invitearena/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
// 把台账服务发出的领域事件转成对协作方的回调，排行榜发布任务在这里渲染快照。
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskReferralAwarded, c.handleReferralAwarded)
	mux.HandleFunc(queue.TaskTaskCompleted, c.handleTaskCompleted)
	mux.HandleFunc(queue.TaskParticipantDeparted, c.handleParticipantDeparted)
	mux.HandleFunc(queue.TaskLeaderboardPublish, c.handleLeaderboardPublish)
}

func (c *Consumer) handleReferralAwarded(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_referral_awarded_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReferralAwardedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_referral_awarded_unmarshal_failed", "error", err)
		return err
	}
	if payload.ReferrerID == 0 {
		logger.Debugw("worker_referral_awarded_skip_invalid_payload", "event_id", payload.EventID)
		return nil
	}
	if err := c.Notifier.Send(ctx, queue.TaskReferralAwarded, payload); err != nil {
		logger.Warnw("worker_referral_awarded_notify_failed",
			"event_id", payload.EventID,
			"referrer_id", payload.ReferrerID,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleTaskCompleted(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_task_completed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.TaskCompletedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_task_completed_unmarshal_failed", "error", err)
		return err
	}
	if payload.ParticipantID == 0 {
		logger.Debugw("worker_task_completed_skip_invalid_payload", "event_id", payload.EventID)
		return nil
	}
	if err := c.Notifier.Send(ctx, queue.TaskTaskCompleted, payload); err != nil {
		logger.Warnw("worker_task_completed_notify_failed",
			"event_id", payload.EventID,
			"participant_id", payload.ParticipantID,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleParticipantDeparted(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_participant_departed_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ParticipantDepartedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_participant_departed_unmarshal_failed", "error", err)
		return err
	}
	if payload.ParticipantID == 0 {
		logger.Debugw("worker_participant_departed_skip_invalid_payload", "event_id", payload.EventID)
		return nil
	}
	if err := c.Notifier.Send(ctx, queue.TaskParticipantDeparted, payload); err != nil {
		logger.Warnw("worker_participant_departed_notify_failed",
			"event_id", payload.EventID,
			"participant_id", payload.ParticipantID,
			"error", err,
		)
		return err
	}
	return nil
}

// handleLeaderboardPublish 渲染当前榜单并推送给协作方
// 快照同时写入 redis，查询接口在 TTL 内直接命中，不再跑排序查询。
func (c *Consumer) handleLeaderboardPublish(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_leaderboard_publish_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LeaderboardPublishPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_leaderboard_publish_unmarshal_failed", "error", err)
		return err
	}
	if payload.CommunityID == 0 {
		logger.Debugw("worker_leaderboard_publish_skip_invalid_payload", "event_id", payload.EventID)
		return nil
	}

	snapshot, err := c.RankingService.BuildSnapshot(payload.CommunityID)
	if err != nil {
		logger.Warnw("worker_leaderboard_publish_build_failed",
			"community_id", payload.CommunityID,
			"error", err,
		)
		return err
	}
	if ttl := leaderboardCacheTTL(c.Container); ttl > 0 {
		if err := cache.SetLeaderboardSnapshot(ctx, snapshot, ttl); err != nil {
			logger.Warnw("worker_leaderboard_publish_cache_failed",
				"community_id", payload.CommunityID,
				"error", err,
			)
		}
	}
	if err := c.Notifier.Send(ctx, queue.TaskLeaderboardPublish, snapshot); err != nil {
		logger.Warnw("worker_leaderboard_publish_notify_failed",
			"community_id", payload.CommunityID,
			"error", err,
		)
		return err
	}
	return nil
}
