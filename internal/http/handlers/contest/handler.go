package contest

import (
	"github.com/invitearena/invitearena/internal/http/response"
	"github.com/invitearena/invitearena/internal/logger"
	"github.com/invitearena/invitearena/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 协作方（机器人网关）接口处理器入口
type Handler struct {
	*provider.Container
}

// New 创建协作方处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func respondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		logger.Warnw("contest_api_error",
			"path", c.FullPath(),
			"code", appErr.Code,
			"error", appErr.Error(),
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}
