package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nitesh/midpoint_service/internal/places"
	"github.com/nitesh/midpoint_service/internal/service"
	"github.com/nitesh/midpoint_service/pkg/models"
)

// MidpointService is what the handlers need from internal/service.
type MidpointService interface {
	FindMidpoint(ctx context.Context, req models.MidpointRequest) (*models.MidpointResponse, error)
	FindMidpointForAddresses(ctx context.Context, req models.AddressMidpointRequest) (*models.MidpointResponse, error)
	Autocomplete(ctx context.Context, input, sessionToken string) ([]models.PlacePrediction, error)
	PlaceDetails(ctx context.Context, placeID, sessionToken string) (*models.PlaceDetails, error)
	IngestPlaces(ctx context.Context, in []models.CandidatePlace) (int, error)
}

type Handler struct {
	svc MidpointService
}

func NewHandler(svc MidpointService) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		api.POST("/midpoint", h.Midpoint)
		api.POST("/midpoint/addresses", h.MidpointForAddresses)
		api.GET("/categories", h.Categories)
		api.GET("/places/autocomplete", h.Autocomplete)
		api.GET("/places/details", h.Details)
		api.POST("/places/ingest", h.Ingest)
		api.GET("/health", h.Health)
	}
}

// Midpoint: POST /api/midpoint
// Body: {"coords":[{"lat":..,"lng":..},...], "filters":["cafe"], "mode":"driving"}
func (h *Handler) Midpoint(c *gin.Context) {
	var req models.MidpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json: " + err.Error()})
		return
	}
	res, err := h.svc.FindMidpoint(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// MidpointForAddresses: POST /api/midpoint/addresses
// Body: {"locations":["San Francisco, CA","San Jose, CA"], "filters":[], "mode":""}
func (h *Handler) MidpointForAddresses(c *gin.Context) {
	var req models.AddressMidpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json: " + err.Error()})
		return
	}
	res, err := h.svc.FindMidpointForAddresses(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Categories: GET /api/categories?activity=shopping
func (h *Handler) Categories(c *gin.Context) {
	activity := c.Query("activity")
	c.JSON(http.StatusOK, gin.H{
		"activity":   activity,
		"categories": places.CategoriesForActivity(activity),
	})
}

// Autocomplete: GET /api/places/autocomplete?input=...&sessionToken=...
func (h *Handler) Autocomplete(c *gin.Context) {
	res, err := h.svc.Autocomplete(c.Request.Context(), c.Query("input"), sessionToken(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Details: GET /api/places/details?placeId=...&sessionToken=...
func (h *Handler) Details(c *gin.Context) {
	res, err := h.svc.PlaceDetails(c.Request.Context(), c.Query("placeId"), sessionToken(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Ingest: POST /api/places/ingest
// Body: JSON array of places
func (h *Handler) Ingest(c *gin.Context) {
	var payload []models.CandidatePlace
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid json: " + err.Error()})
		return
	}
	n, err := h.svc.IngestPlaces(c.Request.Context(), payload)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"meta": gin.H{"imported": n},
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// sessionToken groups autocomplete and details calls for billing; one is
// generated when the client did not send it.
func sessionToken(c *gin.Context) string {
	if t := strings.TrimSpace(c.Query("sessionToken")); t != "" {
		return t
	}
	return uuid.New().String()
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"message": err.Error()})
}

func statusFor(err error) int {
	var (
		ve *service.ValidationError
		ge *service.GeocodeError
		ue *service.UpstreamError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &ge):
		if ge.NotFound() {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case errors.Is(err, service.ErrPlaceNotFound):
		return http.StatusNotFound
	case errors.As(err, &ue):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrCatalogDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
