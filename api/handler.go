package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/speaker"
	"github.com/kbukum/speakerid/validation"
)

// Handler serves the /api/v1 routes.
type Handler struct {
	service   *speaker.Service
	resolver  *speaker.Resolver
	suggester *speaker.Suggester
}

// NewHandler creates the API handler.
func NewHandler(service *speaker.Service, resolver *speaker.Resolver, suggester *speaker.Suggester) *Handler {
	return &Handler{service: service, resolver: resolver, suggester: suggester}
}

// Register mounts every route on r under /api/v1.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1")

	meetings := v1.Group("/meetings")
	meetings.POST("", h.ImportMeeting)
	meetings.GET("/:meetingID/segments", h.ListSegments)
	meetings.GET("/:meetingID/suggestions", h.Suggestions)
	meetings.POST("/:meetingID/aliases", h.AssignAlias)

	segments := v1.Group("/segments")
	segments.POST("/relabel", h.Relabel)
	segments.POST("/assign-person", h.AssignPerson)
	segments.POST("/:segmentID/split", h.Split)

	people := v1.Group("/people")
	people.POST("", h.CreatePerson)
	people.PUT("/:personID/fingerprint", h.RefreshFingerprint)

	v1.POST("/fingerprints/match", h.MatchFingerprint)
}

// bindJSON decodes the request body into dst. Validation is left to the
// service.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return apperrors.MissingField("body")
	case errors.As(err, &maxErr):
		return apperrors.New(apperrors.ErrCodeInvalidInput, "Request body too large", http.StatusRequestEntityTooLarge).
			WithDetail("limit_bytes", maxErr.Limit)
	default:
		return apperrors.InvalidInput("body", "malformed JSON: "+err.Error()).WithCause(err)
	}
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name, field string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput(field, field+" must be a positive integer")
	}
	return id, nil
}

func pathUUID(c *gin.Context, name, field string) (uuid.UUID, error) {
	return validation.ParseUUID(field, c.Param(name))
}
