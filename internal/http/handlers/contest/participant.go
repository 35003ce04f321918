package contest

import (
	"errors"
	"strconv"

	"github.com/invitearena/invitearena/internal/http/response"
	"github.com/invitearena/invitearena/internal/models"
	"github.com/invitearena/invitearena/internal/service"

	"github.com/gin-gonic/gin"
)

// RegisterRequest 注册/回归请求
type RegisterRequest struct {
	ExternalUserID int64  `json:"external_user_id" binding:"required"`
	CommunityID    int64  `json:"community_id" binding:"required"`
	DisplayName    string `json:"display_name"`
	Username       string `json:"username"`
	ReferralCode   string `json:"referral_code"`
	CommunityTitle string `json:"community_title"`
}

// DepartureRequest 退出事件请求
type DepartureRequest struct {
	ExternalUserID int64 `json:"external_user_id" binding:"required"`
	CommunityID    int64 `json:"community_id" binding:"required"`
}

// participantView 参与者对外视图
type participantView struct {
	ExternalUserID int64  `json:"external_user_id"`
	CommunityID    int64  `json:"community_id"`
	DisplayName    string `json:"display_name"`
	Username       string `json:"username"`
	ReferralCode   string `json:"referral_code"`
	Points         int    `json:"points"`
	ReferralCount  int    `json:"referral_count"`
	TaskCompleted  bool   `json:"task_completed"`
	IsActive       bool   `json:"is_active"`
}

func buildParticipantView(p *models.Participant) participantView {
	return participantView{
		ExternalUserID: p.ExternalUserID,
		CommunityID:    p.CommunityID,
		DisplayName:    p.DisplayName,
		Username:       p.Username,
		ReferralCode:   p.ReferralCode,
		Points:         p.Points,
		ReferralCount:  p.ReferralCount,
		TaskCompleted:  p.TaskCompleted,
		IsActive:       p.IsActive,
	}
}

// Register 注册或重新激活参与者
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	result, err := h.ContestService.RegisterOrActivate(service.RegisterInput{
		ExternalUserID: req.ExternalUserID,
		CommunityID:    req.CommunityID,
		DisplayName:    req.DisplayName,
		Username:       req.Username,
		ReferralCode:   req.ReferralCode,
		CommunityTitle: req.CommunityTitle,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfReferral):
			respondError(c, response.CodeBadRequest, "self referral is not allowed", nil)
		case errors.Is(err, service.ErrReferralCodeInvalid):
			respondError(c, response.CodeBadRequest, "invalid referral code", nil)
		case errors.Is(err, service.ErrCommunityDisabled):
			respondError(c, response.CodeForbidden, "contest is disabled for this community", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeBadRequest, "invalid participant identity", nil)
		case errors.Is(err, service.ErrConflict):
			respondError(c, response.CodeConflict, "concurrent update, retry the event", nil)
		default:
			respondError(c, response.CodeInternal, "registration failed", err)
		}
		return
	}

	data := gin.H{
		"participant": buildParticipantView(result.Participant),
		"created":     result.Created,
		"reactivated": result.Reactivated,
	}
	if result.Referrer != nil {
		data["referrer"] = buildParticipantView(result.Referrer)
	}
	response.Success(c, data)
}

// Departure 处理参与者退出事件
func (h *Handler) Departure(c *gin.Context) {
	var req DepartureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	result, err := h.ContestService.HandleDeparture(req.CommunityID, req.ExternalUserID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "participant not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "departure handling failed", err)
		return
	}
	response.Success(c, gin.H{
		"applied": result.Applied,
		"revoked": result.Revoked,
	})
}

// GetStats 查询参与者台账
func (h *Handler) GetStats(c *gin.Context) {
	communityID, externalUserID, ok := parseIdentityQuery(c)
	if !ok {
		return
	}

	participant, err := h.ContestService.GetStats(communityID, externalUserID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "participant not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "stats fetch failed", err)
		return
	}
	response.Success(c, buildParticipantView(participant))
}

func parseIdentityQuery(c *gin.Context) (communityID, externalUserID int64, ok bool) {
	communityID, err := strconv.ParseInt(c.Query("community_id"), 10, 64)
	if err != nil || communityID == 0 {
		respondError(c, response.CodeBadRequest, "invalid community_id", err)
		return 0, 0, false
	}
	externalUserID, err = strconv.ParseInt(c.Query("external_user_id"), 10, 64)
	if err != nil || externalUserID == 0 {
		respondError(c, response.CodeBadRequest, "invalid external_user_id", err)
		return 0, 0, false
	}
	return communityID, externalUserID, true
}
