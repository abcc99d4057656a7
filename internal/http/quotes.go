package httpapi

import (
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
	"github.com/denisok6893-rgb/stay-pricing/internal/storage"
)

type StayWindow struct {
	StartDate civil.Date `json:"start_date"`
	EndDate   civil.Date `json:"end_date"`
}

type QuoteRequest struct {
	Rates domain.RateCard `json:"rates"`
	StayWindow
}

type PropertyQuoteResponse struct {
	PropertyID  string             `json:"property_id"`
	ListingKind domain.ListingKind `json:"listing_kind"`
	StartDate   civil.Date         `json:"start_date"`
	EndDate     civil.Date         `json:"end_date"`
	domain.PriceBreakdown
}

func (w StayWindow) request() (domain.StayRequest, bool) {
	if !w.StartDate.IsValid() || !w.EndDate.IsValid() {
		return domain.StayRequest{}, false
	}
	return domain.StayRequest{StartDate: w.StartDate, EndDate: w.EndDate}, true
}

// handleQuote prices an ad-hoc rate card without touching storage.
func (s *Server) handleQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	stay, ok := req.request()
	if !ok {
		jsonError(c, http.StatusBadRequest, "invalid_request", "start_date and end_date are required (YYYY-MM-DD)")
		return
	}
	if err := storage.ValidateRateCard(req.Rates); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_rate", err.Error())
		return
	}

	out, err := s.Calculator.Compute(req.Rates, stay)
	if err != nil {
		s.writeCalcError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handlePropertyQuote(c *gin.Context) {
	var w StayWindow
	if err := c.ShouldBindJSON(&w); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	stay, ok := w.request()
	if !ok {
		jsonError(c, http.StatusBadRequest, "invalid_request", "start_date and end_date are required (YYYY-MM-DD)")
		return
	}

	id := c.Param("id")
	p, found, err := s.Store.GetProperty(c.Request.Context(), id)
	if err != nil {
		s.internalError(c, "quote: get property", err)
		return
	}
	if !found {
		jsonError(c, http.StatusNotFound, "not_found", "property not found")
		return
	}

	out, err := s.Calculator.Compute(p.Rates, stay)
	if err != nil {
		s.Log.Debug("quote %s %s..%s: %v", id, stay.StartDate, stay.EndDate, err)
		s.writeCalcError(c, err)
		return
	}
	c.JSON(http.StatusOK, PropertyQuoteResponse{
		PropertyID:     p.ID,
		ListingKind:    p.Rates.Kind,
		StartDate:      stay.StartDate,
		EndDate:        stay.EndDate,
		PriceBreakdown: out,
	})
}
