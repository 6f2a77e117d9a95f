package handlers

import (
	"errors"
	"net/http"

	"github.com/dgnorth/drift-base-sub001/internal/api/middleware"
	"github.com/dgnorth/drift-base-sub001/internal/models"
	"github.com/dgnorth/drift-base-sub001/internal/service"
	"github.com/gin-gonic/gin"
)

type MatchqueueHandler struct{}

func NewMatchqueueHandler() *MatchqueueHandler {
	return &MatchqueueHandler{}
}

// Enqueue 매칭 큐 등록 (이전 요청이 있으면 대체)
func (h *MatchqueueHandler) Enqueue(c *gin.Context) {
	var req models.EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t := middleware.TenantFrom(c)
	entry, err := t.Admission.Enqueue(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrQueueBusy), errors.Is(err, service.ErrQueueProcessing):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "error processing the queue, please retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// Get 플레이어의 최신 큐 엔트리 조회
func (h *MatchqueueHandler) Get(c *gin.Context) {
	playerID := c.Param("playerId")

	t := middleware.TenantFrom(c)
	entry, err := t.Admission.GetQueueEntry(c.Request.Context(), playerID)
	if err != nil {
		if errors.Is(err, service.ErrEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "queue entry not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Dequeue 매칭 큐 해제
//
// matched 엔트리는 ?force=true 없이 해제할 수 없다.
func (h *MatchqueueHandler) Dequeue(c *gin.Context) {
	playerID := c.Param("playerId")
	force := c.Query("force") == "true"

	t := middleware.TenantFrom(c)
	err := t.Admission.Dequeue(c.Request.Context(), playerID, force)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEntryNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "queue entry not found"})
		case errors.Is(err, service.ErrAlreadyMatched):
			c.JSON(http.StatusConflict, gin.H{"error": "queue entry already matched, pass force=true to abandon"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// Process 매칭 패스 수동 트리거
//
// 멱등이므로 매치/플레이어 상태 변경 후 언제든 호출해도 안전하다.
func (h *MatchqueueHandler) Process(c *gin.Context) {
	t := middleware.TenantFrom(c)
	if err := t.Matching.ProcessQueue(c.Request.Context()); err != nil {
		if errors.Is(err, service.ErrQueueBusy) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match queue is busy, try again"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
