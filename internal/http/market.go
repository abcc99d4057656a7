package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type BaselineKey struct {
	Location string `json:"location" form:"location" binding:"required"`
	Category string `json:"category" form:"category" binding:"required"`
}

func (k BaselineKey) blank() bool {
	return strings.TrimSpace(k.Location) == "" || strings.TrimSpace(k.Category) == ""
}

func (s *Server) handleBaselineGet(c *gin.Context) {
	var k BaselineKey
	if err := c.ShouldBindQuery(&k); err != nil || k.blank() {
		jsonError(c, http.StatusBadRequest, "invalid_request", "location and category are required")
		return
	}

	b, err := s.Market.Baseline(c.Request.Context(), k.Location, k.Category)
	if err != nil {
		s.internalError(c, "get baseline", err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) handleBaselineRecompute(c *gin.Context) {
	var k BaselineKey
	if err := c.ShouldBindJSON(&k); err != nil || k.blank() {
		jsonError(c, http.StatusBadRequest, "invalid_request", "location and category are required")
		return
	}

	b, ok, err := s.Market.Recompute(c.Request.Context(), k.Location, k.Category)
	if err != nil {
		s.internalError(c, "recompute baseline", err)
		return
	}
	if !ok {
		jsonError(c, http.StatusUnprocessableEntity, "insufficient_listings", "not enough listings to build a baseline")
		return
	}
	c.JSON(http.StatusOK, b)
}
