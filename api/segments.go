package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerid/server"
	"github.com/kbukum/speakerid/speaker"
)

// Relabel handles POST /api/v1/segments/relabel.
func (h *Handler) Relabel(c *gin.Context) {
	var req speaker.RelabelRequest
	if err := bindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	res, err := h.service.RelabelSegments(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, res)
}

// AssignPerson handles POST /api/v1/segments/assign-person.
func (h *Handler) AssignPerson(c *gin.Context) {
	var req speaker.AssignPersonRequest
	if err := bindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	res, err := h.service.AssignPersonSegments(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, res)
}

// Split handles POST /api/v1/segments/:segmentID/split.
func (h *Handler) Split(c *gin.Context) {
	segmentID, err := pathID(c, "segmentID", "segment_id")
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	var req speaker.SplitRequest
	if err := bindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	req.SegmentID = segmentID

	res, err := h.service.SplitSegment(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, res)
}
