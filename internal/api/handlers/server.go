package handlers

import (
	"net/http"
	"time"

	"github.com/dgnorth/drift-base-sub001/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

type ServerHandler struct{}

func NewServerHandler() *ServerHandler {
	return &ServerHandler{}
}

// ListServers 등록된 게임 서버 목록 조회
func (h *ServerHandler) ListServers(c *gin.Context) {
	t := middleware.TenantFrom(c)
	servers, err := t.Servers.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"servers": servers,
		"total":   len(servers),
	})
}

// Heartbeat 서버 하트비트 갱신
//
// 등록 자체는 서버 등록 서브시스템의 몫이다. 이 엔드포인트는
// 이미 등록된 서버의 liveness만 갱신한다.
func (h *ServerHandler) Heartbeat(c *gin.Context) {
	serverID := c.Param("id")

	t := middleware.TenantFrom(c)
	ok, err := t.Servers.Heartbeat(c.Request.Context(), serverID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "server not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
