package handlers

import (
	"net/http"
	"strconv"

	"github.com/dgnorth/drift-base-sub001/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

type MatchHandler struct{}

func NewMatchHandler() *MatchHandler {
	return &MatchHandler{}
}

// ListMatches 매치 목록 조회 (최신순)
func (h *MatchHandler) ListMatches(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	t := middleware.TenantFrom(c)
	matches, err := t.Matches.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"total":   len(matches),
	})
}

// GetMatch 매치 단건 조회
func (h *MatchHandler) GetMatch(c *gin.Context) {
	matchID := c.Param("id")

	t := middleware.TenantFrom(c)
	match, err := t.Matches.ByID(c.Request.Context(), matchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if match == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}

	c.JSON(http.StatusOK, match)
}
