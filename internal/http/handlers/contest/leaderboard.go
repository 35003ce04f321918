package contest

import (
	"errors"
	"strconv"

	"github.com/invitearena/invitearena/internal/http/response"
	"github.com/invitearena/invitearena/internal/service"

	"github.com/gin-gonic/gin"
)

// GetLeaderboard 查询排行榜
func (h *Handler) GetLeaderboard(c *gin.Context) {
	communityID, err := strconv.ParseInt(c.Query("community_id"), 10, 64)
	if err != nil || communityID == 0 {
		respondError(c, response.CodeBadRequest, "invalid community_id", err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	snapshot, err := h.RankingService.GetLeaderboard(c.Request.Context(), communityID, limit)
	if err != nil {
		respondError(c, response.CodeInternal, "leaderboard fetch failed", err)
		return
	}
	response.Success(c, snapshot)
}

// GetRank 查询参与者名次
func (h *Handler) GetRank(c *gin.Context) {
	communityID, externalUserID, ok := parseIdentityQuery(c)
	if !ok {
		return
	}

	result, err := h.RankingService.GetRank(communityID, externalUserID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "participant not found", nil)
			return
		}
		respondError(c, response.CodeInternal, "rank fetch failed", err)
		return
	}
	response.Success(c, gin.H{
		"rank":   result.Rank,
		"total":  result.Total,
		"points": result.Points,
	})
}
