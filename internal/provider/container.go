package provider

import (
	"github.com/invitearena/invitearena/internal/cache"
	"github.com/invitearena/invitearena/internal/config"
	"github.com/invitearena/invitearena/internal/logger"
	"github.com/invitearena/invitearena/internal/models"
	"github.com/invitearena/invitearena/internal/notify"
	"github.com/invitearena/invitearena/internal/queue"
	"github.com/invitearena/invitearena/internal/repository"
	"github.com/invitearena/invitearena/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	DedupCache  *cache.MemoryCache
	Notifier    *notify.WebhookNotifier

	// Repositories
	ParticipantRepo  repository.ParticipantRepository
	ReferralEdgeRepo repository.ReferralEdgeRepository
	CommunityRepo    repository.CommunityRepository

	// Services
	ContestService *service.ContestService
	TaskService    *service.TaskService
	RankingService *service.RankingService
	TokenService   *service.TokenService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
		DedupCache:  cache.NewMemoryCache(cfg.Contest.DedupCacheCapacity),
		Notifier:    notify.NewWebhookNotifier(cfg.Contest.WebhookURL, cfg.Contest.WebhookTimeoutMS),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.ParticipantRepo = repository.NewParticipantRepository(db)
	c.ReferralEdgeRepo = repository.NewReferralEdgeRepository(db)
	c.CommunityRepo = repository.NewCommunityRepository(db)
}

func (c *Container) initServices() {
	contest := c.Config.Contest
	c.ContestService = service.NewContestService(
		c.ParticipantRepo,
		c.ReferralEdgeRepo,
		c.CommunityRepo,
		c.DedupCache,
		c.QueueClient,
		contest.ReferralPoints,
		contest.CodeLength,
	)
	c.TaskService = service.NewTaskService(
		c.ParticipantRepo,
		c.QueueClient,
		contest.TaskPoints,
		contest.TaskMinDelaySeconds,
	)
	c.RankingService = service.NewRankingService(
		c.ParticipantRepo,
		contest.LeaderboardCacheSecond,
		contest.PublishLimit,
	)
	c.TokenService = service.NewTokenService(c.Config.API.JWTSecret, c.Config.API.ExpireHours)
}
