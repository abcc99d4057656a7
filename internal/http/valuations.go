package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
)

type ValuationRequest struct {
	PropertyID string              `json:"property_id"`
	Location   string              `json:"location"`
	Category   string              `json:"category"`
	Area       decimal.NullDecimal `json:"area"`
	Bedrooms   *int                `json:"bedrooms"`
	Bathrooms  *int                `json:"bathrooms"`
}

// inputs fills fields the caller left out from the stored property.
func (r ValuationRequest) inputs(p *domain.Property) domain.ValuationInputs {
	in := domain.ValuationInputs{
		Location:  strings.TrimSpace(r.Location),
		Category:  strings.TrimSpace(r.Category),
		Area:      r.Area,
		Bedrooms:  r.Bedrooms,
		Bathrooms: r.Bathrooms,
	}
	if p == nil {
		return in
	}
	if in.Location == "" {
		in.Location = p.Location
	}
	if in.Category == "" {
		in.Category = p.Category
	}
	if !in.Area.Valid && p.AreaSQM.IsPositive() {
		in.Area = decimal.NewNullDecimal(p.AreaSQM)
	}
	if in.Bedrooms == nil {
		beds := p.Bedrooms
		in.Bedrooms = &beds
	}
	if in.Bathrooms == nil {
		baths := p.Bathrooms
		in.Bathrooms = &baths
	}
	return in
}

func validInputs(in domain.ValuationInputs) string {
	switch {
	case in.Location == "" || in.Category == "":
		return "location and category are required"
	case in.Area.Valid && in.Area.Decimal.IsNegative():
		return "area must not be negative"
	case in.Bedrooms != nil && *in.Bedrooms < 0:
		return "bedrooms must not be negative"
	case in.Bathrooms != nil && *in.Bathrooms < 0:
		return "bathrooms must not be negative"
	}
	return ""
}

func (s *Server) handleValuationCreate(c *gin.Context) {
	var req ValuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	ctx := c.Request.Context()

	var prop *domain.Property
	if req.PropertyID != "" {
		p, ok, err := s.Store.GetProperty(ctx, req.PropertyID)
		if err != nil {
			s.internalError(c, "valuation: get property", err)
			return
		}
		if !ok {
			jsonError(c, http.StatusNotFound, "not_found", "property not found")
			return
		}
		prop = &p
	}

	in := req.inputs(prop)
	if msg := validInputs(in); msg != "" {
		jsonError(c, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	baseline, err := s.Market.Baseline(ctx, in.Location, in.Category)
	if err != nil {
		s.internalError(c, "valuation: baseline", err)
		return
	}

	report := domain.ValuationReport{
		ID:         uuid.NewString(),
		PropertyID: req.PropertyID,
		Inputs:     in,
		Result:     s.Estimator.Estimate(baseline, in),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.Store.SaveValuationReport(ctx, report); err != nil {
		s.internalError(c, "save valuation", err)
		return
	}

	s.Log.Info("valuation %s: %s / %s → %s (%s)", report.ID, in.Location, in.Category,
		report.Result.EstimatedValue, report.Result.Confidence)
	c.JSON(http.StatusCreated, report)
}

func (s *Server) handleValuationGet(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		jsonError(c, http.StatusNotFound, "not_found", "valuation not found")
		return
	}

	r, ok, err := s.Store.GetValuationReport(c.Request.Context(), id)
	if err != nil {
		s.internalError(c, "get valuation", err)
		return
	}
	if !ok {
		jsonError(c, http.StatusNotFound, "not_found", "valuation not found")
		return
	}
	c.JSON(http.StatusOK, r)
}
