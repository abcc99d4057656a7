package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/denisok6893-rgb/stay-pricing/internal/logging"
	"github.com/denisok6893-rgb/stay-pricing/internal/market"
	"github.com/denisok6893-rgb/stay-pricing/internal/pricing"
	"github.com/denisok6893-rgb/stay-pricing/internal/storage"
	"github.com/denisok6893-rgb/stay-pricing/internal/valuation"
)

type Server struct {
	Store      storage.Store
	Calculator *pricing.Calculator
	Estimator  *valuation.Estimator
	Market     *market.Service
	Log        *logging.Logger

	// CORSOrigins restricts cross-origin callers; empty allows any origin.
	CORSOrigins []string

	now func() time.Time
}

func NewServer(
	store storage.Store,
	calc *pricing.Calculator,
	est *valuation.Estimator,
	mkt *market.Service,
	log *logging.Logger,
) *Server {
	if log == nil {
		log = logging.Discard()
	}
	return &Server{
		Store:      store,
		Calculator: calc,
		Estimator:  est,
		Market:     mkt,
		Log:        log,
		now:        time.Now,
	}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(s.Log.Writer()), gin.Recovery())
	r.Use(cors.New(s.corsConfig()))

	r.GET("/health", s.handleHealth)

	props := r.Group("/properties")
	{
		props.GET("", s.handlePropertiesList)
		props.POST("", s.handlePropertiesCreate)
		props.GET("/:id", s.handlePropertiesGet)
		props.DELETE("/:id", s.handlePropertiesDelete)
		props.PUT("/:id/rates", s.handleRatesUpdate)
		props.POST("/:id/quote", s.handlePropertyQuote)
	}

	r.POST("/quotes", s.handleQuote)

	r.GET("/market/baselines", s.handleBaselineGet)
	r.POST("/market/baselines/recompute", s.handleBaselineRecompute)

	r.POST("/valuations", s.handleValuationCreate)
	r.GET("/valuations/:id", s.handleValuationGet)

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(s.CORSOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = s.CORSOrigins
	cfg.AllowCredentials = true
	return cfg
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func jsonError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	s.Log.Error("%s: %v", op, err)
	jsonError(c, http.StatusInternalServerError, "internal", "internal error")
}

// writeCalcError maps calculator failures onto client errors.
func (s *Server) writeCalcError(c *gin.Context, err error) {
	var missing *pricing.MissingRateError
	switch {
	case errors.As(err, &missing):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "missing_rate",
			"tier":    missing.Tier,
			"message": err.Error(),
		})
	case errors.Is(err, pricing.ErrInvalidRange):
		jsonError(c, http.StatusBadRequest, "invalid_range", err.Error())
	case errors.Is(err, pricing.ErrInvalidRate):
		jsonError(c, http.StatusBadRequest, "invalid_rate", err.Error())
	case errors.Is(err, pricing.ErrUnknownListingKind):
		jsonError(c, http.StatusBadRequest, "invalid_listing_kind", err.Error())
	default:
		s.internalError(c, "compute quote", err)
	}
}

func parseLimitOffset(c *gin.Context, defLimit, defOffset int) (int, int) {
	limit := defLimit
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = defLimit
	}
	// safety cap
	if limit > 200 {
		limit = 200
	}

	offset := defOffset
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = defOffset
	}

	return limit, offset
}

func queryFloat(c *gin.Context, key string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(c.Query(key)), 64)
	return v
}

func queryInt(c *gin.Context, key string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(c.Query(key)))
	return v
}
