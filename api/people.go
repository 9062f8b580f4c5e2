package api

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerid/server"
	"github.com/kbukum/speakerid/speaker"
)

// matchRequest is the body of POST /api/v1/fingerprints/match.
type matchRequest struct {
	Embedding []float32 `json:"embedding"`
}

// CreatePerson handles POST /api/v1/people.
func (h *Handler) CreatePerson(c *gin.Context) {
	var req speaker.CreatePersonRequest
	if err := bindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	p, err := h.service.CreatePerson(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, p)
}

// RefreshFingerprint handles PUT /api/v1/people/:personID/fingerprint. It
// answers 201 when the person had no fingerprint and 200 when one was
// replaced.
func (h *Handler) RefreshFingerprint(c *gin.Context) {
	personID, err := pathUUID(c, "personID", "person_id")
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	var req speaker.FingerprintRequest
	if err := bindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	req.PersonID = personID

	res, err := h.service.RefreshFingerprint(c.Request.Context(), req)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if res.Created {
		server.RespondCreated(c, res)
		return
	}
	server.RespondOK(c, res)
}

// MatchFingerprint handles POST /api/v1/fingerprints/match.
func (h *Handler) MatchFingerprint(c *gin.Context) {
	var req matchRequest
	if err := bindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	res, err := h.suggester.Match(c.Request.Context(), req.Embedding)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, res)
}
