package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerid/diarization"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/server"
	"github.com/kbukum/speakerid/speaker"
)

// identityView is a resolved segment with the name a transcript shows.
type identityView struct {
	speaker.Identity
	DisplayName string `json:"display_name"`
}

// ImportMeeting handles POST /api/v1/meetings.
func (h *Handler) ImportMeeting(c *gin.Context) {
	var t diarization.Transcript
	if err := bindJSON(c, &t); err != nil {
		server.RespondWithError(c, err)
		return
	}
	res, err := h.service.ImportTranscript(c.Request.Context(), &t)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, res)
}

// ListSegments handles GET /api/v1/meetings/:meetingID/segments.
func (h *Handler) ListSegments(c *gin.Context) {
	meetingID, err := pathID(c, "meetingID", "meeting_id")
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	ids, err := h.resolver.ResolveMeeting(c.Request.Context(), meetingID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	views := make([]identityView, len(ids))
	for i, id := range ids {
		views[i] = identityView{Identity: id, DisplayName: id.DisplayName()}
	}
	server.RespondOKWithMeta(c, views, &server.Meta{Total: len(views)})
}

// Suggestions handles GET /api/v1/meetings/:meetingID/suggestions.
// ?refresh=true bypasses the cache.
func (h *Handler) Suggestions(c *gin.Context) {
	meetingID, err := pathID(c, "meetingID", "meeting_id")
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	refresh := false
	if raw := c.Query("refresh"); raw != "" {
		refresh, err = strconv.ParseBool(raw)
		if err != nil {
			server.RespondWithError(c, apperrors.InvalidInput("refresh", "refresh must be a boolean"))
			return
		}
	}
	res, err := h.suggester.Suggest(c.Request.Context(), meetingID, refresh)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOKWithMeta(c, res, &server.Meta{Total: len(res.Suggestions)})
}

// AssignAlias handles POST /api/v1/meetings/:meetingID/aliases.
func (h *Handler) AssignAlias(c *gin.Context) {
	meetingID, err := pathID(c, "meetingID", "meeting_id")
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	var req speaker.AssignAliasRequest
	if err := bindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	req.MeetingID = meetingID

	res, err := h.service.AssignAlias(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, res)
}
