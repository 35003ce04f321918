package service

import (
	"time"

	"github.com/invitearena/invitearena/internal/constants"
	"github.com/invitearena/invitearena/internal/logger"
	"github.com/invitearena/invitearena/internal/queue"
	"github.com/invitearena/invitearena/internal/repository"

	"github.com/google/uuid"
)

// TaskService 一次性任务服务
type TaskService struct {
	participantRepo repository.ParticipantRepository
	queueClient     *queue.Client
	taskPoints      int
	minDelay        time.Duration
}

// NewTaskService 创建任务服务
func NewTaskService(participantRepo repository.ParticipantRepository, queueClient *queue.Client, taskPoints, minDelaySeconds int) *TaskService {
	if taskPoints <= 0 {
		taskPoints = constants.DefaultTaskPoints
	}
	if minDelaySeconds < 0 {
		minDelaySeconds = constants.DefaultTaskMinDelaySeconds
	}
	return &TaskService{
		participantRepo: participantRepo,
		queueClient:     queueClient,
		taskPoints:      taskPoints,
		minDelay:        time.Duration(minDelaySeconds) * time.Second,
	}
}

// TaskCompletionResult 任务完成结果
type TaskCompletionResult struct {
	Awarded bool
	Points  int
}

// CompleteTask 处理任务完成提交
// promptSentAt 为任务下发时刻，间隔不足判定为自动化提交并拒绝。
// 判定与加分在仓储层一条条件更新内完成，重复提交与并发提交都只计一次。
func (s *TaskService) CompleteTask(communityID, externalUserID int64, promptSentAt time.Time) (*TaskCompletionResult, error) {
	participant, err := s.participantRepo.GetByExternalID(communityID, externalUserID)
	if err != nil {
		return nil, err
	}
	if participant == nil || !participant.IsActive {
		return nil, ErrNotFound
	}
	if participant.TaskCompleted {
		return &TaskCompletionResult{Awarded: false, Points: participant.Points}, nil
	}
	if !promptSentAt.IsZero() && time.Since(promptSentAt) < s.minDelay {
		return nil, ErrTooSoon
	}

	now := time.Now()
	awarded, err := s.participantRepo.CompleteTask(participant.ID, s.taskPoints, now)
	if err != nil {
		return nil, err
	}
	reloaded, err := s.participantRepo.GetByID(participant.ID)
	if err != nil {
		return nil, err
	}
	points := participant.Points
	if reloaded != nil {
		points = reloaded.Points
	}
	if !awarded {
		return &TaskCompletionResult{Awarded: false, Points: points}, nil
	}

	if err := s.queueClient.EnqueueTaskCompleted(queue.TaskCompletedPayload{
		EventID:       uuid.NewString(),
		CommunityID:   communityID,
		ParticipantID: participant.ID,
		NewPointTotal: points,
	}); err != nil {
		logger.Warnw("contest_task_event_enqueue_failed",
			"participant_id", participant.ID, "error", err)
	}
	return &TaskCompletionResult{Awarded: true, Points: points}, nil
}
