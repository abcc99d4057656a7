package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
	"github.com/denisok6893-rgb/stay-pricing/internal/storage"
)

type PropertySummary struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Location    string             `json:"location"`
	Category    string             `json:"category"`
	ListingKind domain.ListingKind `json:"listing_kind"`
	Price       decimal.Decimal    `json:"price"`
	Bedrooms    int                `json:"bedrooms"`
	Bathrooms   int                `json:"bathrooms"`
	AreaSQM     decimal.Decimal    `json:"area_sqm"`
	Amenities   []string           `json:"amenities,omitempty"`
}

type PropertiesListResponse struct {
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Total  int               `json:"total"`
	Items  []PropertySummary `json:"items"`
}

func (s *Server) handlePropertiesList(c *gin.Context) {
	limit, offset := parseLimitOffset(c, 20, 0)

	props, total, err := s.Store.ListPropertiesFiltered(c.Request.Context(), storage.ListFilter{
		Limit:       limit,
		Offset:      offset,
		Location:    c.Query("location"),
		Category:    c.Query("category"),
		Kind:        domain.ListingKind(c.Query("listing_kind")),
		MinPrice:    queryFloat(c, "min_price"),
		MaxPrice:    queryFloat(c, "max_price"),
		MinBedrooms: queryInt(c, "min_bedrooms"),
		Sort:        c.Query("sort"),
	})
	if err != nil {
		s.internalError(c, "list properties", err)
		return
	}

	items := make([]PropertySummary, 0, len(props))
	for _, p := range props {
		items = append(items, PropertySummary{
			ID:          p.ID,
			Title:       p.Title,
			Location:    p.Location,
			Category:    p.Category,
			ListingKind: p.Rates.Kind,
			Price:       p.Price,
			Bedrooms:    p.Bedrooms,
			Bathrooms:   p.Bathrooms,
			AreaSQM:     p.AreaSQM,
			Amenities:   p.Amenities,
		})
	}

	c.JSON(http.StatusOK, PropertiesListResponse{
		Limit:  limit,
		Offset: offset,
		Total:  total,
		Items:  items,
	})
}

type CreatePropertyRequest struct {
	Title     string          `json:"title" binding:"required"`
	Location  string          `json:"location" binding:"required"`
	Category  string          `json:"category" binding:"required"`
	Price     decimal.Decimal `json:"price"`
	Bedrooms  int             `json:"bedrooms" binding:"min=0"`
	Bathrooms int             `json:"bathrooms" binding:"min=0"`
	AreaSQM   decimal.Decimal `json:"area_sqm"`
	Amenities []string        `json:"amenities"`
	Rates     domain.RateCard `json:"rates"`
}

func (s *Server) handlePropertiesCreate(c *gin.Context) {
	var req CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !req.Price.IsPositive() {
		jsonError(c, http.StatusBadRequest, "invalid_request", "price must be > 0")
		return
	}
	if req.AreaSQM.IsNegative() {
		jsonError(c, http.StatusBadRequest, "invalid_request", "area_sqm must not be negative")
		return
	}

	p := domain.Property{
		Title:     strings.TrimSpace(req.Title),
		Location:  strings.TrimSpace(req.Location),
		Category:  strings.TrimSpace(req.Category),
		Price:     req.Price,
		Bedrooms:  req.Bedrooms,
		Bathrooms: req.Bathrooms,
		AreaSQM:   req.AreaSQM,
		Amenities: req.Amenities,
		Rates:     req.Rates,
		CreatedAt: s.now().UTC(),
	}
	if err := storage.ValidateProperty(p); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	created, err := s.Store.CreateProperty(c.Request.Context(), p)
	if err != nil {
		s.internalError(c, "create property", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handlePropertiesGet(c *gin.Context) {
	p, ok, err := s.Store.GetProperty(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.internalError(c, "get property", err)
		return
	}
	if !ok {
		jsonError(c, http.StatusNotFound, "not_found", "property not found")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handlePropertiesDelete(c *gin.Context) {
	ok, err := s.Store.DeleteProperty(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.internalError(c, "delete property", err)
		return
	}
	if !ok {
		jsonError(c, http.StatusNotFound, "not_found", "property not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) handleRatesUpdate(c *gin.Context) {
	var card domain.RateCard
	if err := c.ShouldBindJSON(&card); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := storage.ValidateRateCard(card); err != nil {
		jsonError(c, http.StatusBadRequest, "invalid_rate", err.Error())
		return
	}

	ok, err := s.Store.UpdateRates(c.Request.Context(), c.Param("id"), card)
	if err != nil {
		s.internalError(c, "update rates", err)
		return
	}
	if !ok {
		jsonError(c, http.StatusNotFound, "not_found", "property not found")
		return
	}
	c.JSON(http.StatusOK, card)
}
