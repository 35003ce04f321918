package worker

import (
	"context"
	"errors"
	"time"

	"github.com/invitearena/invitearena/internal/config"
	"github.com/invitearena/invitearena/internal/logger"
	"github.com/invitearena/invitearena/internal/provider"
	"github.com/invitearena/invitearena/internal/queue"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const defaultPublishInterval = time.Hour

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.QueueClient.Enabled() {
		go s.runLeaderboardPublishLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runLeaderboardPublishLoop 按周期给每个开启活动的社区入队一次榜单发布任务
func (s *Service) runLeaderboardPublishLoop(ctx context.Context) {
	if s == nil || s.consumer == nil {
		return
	}
	runOnce := func() {
		communities, err := s.consumer.CommunityRepo.ListEnabled()
		if err != nil {
			logger.Warnw("worker_leaderboard_publish_list_failed", "error", err)
			return
		}
		for _, community := range communities {
			err := s.consumer.QueueClient.EnqueueLeaderboardPublish(queue.LeaderboardPublishPayload{
				EventID:     uuid.NewString(),
				CommunityID: community.ChatID,
			})
			if err != nil {
				logger.Warnw("worker_leaderboard_publish_enqueue_failed",
					"community_id", community.ChatID,
					"error", err,
				)
			}
		}
	}
	runOnce()

	ticker := time.NewTicker(publishInterval(s.consumer.Container))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func publishInterval(c *provider.Container) time.Duration {
	if c == nil || c.Config == nil || c.Config.Contest.PublishIntervalSeconds <= 0 {
		return defaultPublishInterval
	}
	return time.Duration(c.Config.Contest.PublishIntervalSeconds) * time.Second
}

func leaderboardCacheTTL(c *provider.Container) time.Duration {
	if c == nil || c.Config == nil || c.Config.Contest.LeaderboardCacheSecond <= 0 {
		return 0
	}
	return time.Duration(c.Config.Contest.LeaderboardCacheSecond) * time.Second
}
