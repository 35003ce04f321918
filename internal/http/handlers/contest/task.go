package contest

import (
	"errors"
	"time"

	"github.com/invitearena/invitearena/internal/http/response"
	"github.com/invitearena/invitearena/internal/service"

	"github.com/gin-gonic/gin"
)

// TaskCompleteRequest 任务完成提交请求
type TaskCompleteRequest struct {
	ExternalUserID int64 `json:"external_user_id" binding:"required"`
	CommunityID    int64 `json:"community_id" binding:"required"`
	PromptSentAt   int64 `json:"prompt_sent_at"` // 任务下发时刻（unix 秒），缺省跳过间隔校验
}

// CompleteTask 处理一次性任务完成提交
func (h *Handler) CompleteTask(c *gin.Context) {
	var req TaskCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	var promptSentAt time.Time
	if req.PromptSentAt > 0 {
		promptSentAt = time.Unix(req.PromptSentAt, 0)
	}

	result, err := h.TaskService.CompleteTask(req.CommunityID, req.ExternalUserID, promptSentAt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTooSoon):
			respondError(c, response.CodeForbidden, "task submitted too soon", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "participant not found", nil)
		default:
			respondError(c, response.CodeInternal, "task completion failed", err)
		}
		return
	}
	response.Success(c, gin.H{
		"awarded": result.Awarded,
		"points":  result.Points,
	})
}
