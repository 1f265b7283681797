package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pickup_portal_backend/internal/locations/service"
	"pickup_portal_backend/internal/locations/transport"
	"pickup_portal_backend/platform/httpkit"
	"pickup_portal_backend/platform/validator"
)

// Handler handles HTTP requests for location sessions.
type Handler struct {
	svc       *service.Service
	val       *validator.Validator
	keepAlive time.Duration
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

const defaultKeepAlive = 25 * time.Second

// New creates a new location handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val, keepAlive: defaultKeepAlive}
}

// MapCapability reports which map surface a new form would get.
// GET /api/v1/locations/map-capability
func (h *Handler) MapCapability(c *gin.Context) {
	httpkit.OK(c, h.svc.MapCapability(c.Request.Context(), c.Query("locale")))
}

// OpenSession starts a location session for a form.
// POST /api/v1/locations/sessions
func (h *Handler) OpenSession(c *gin.Context) {
	var req transport.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Open(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

// GetSession returns the current session view.
// GET /api/v1/locations/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), identity.UserID(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateInput records edits to the address, map link or city fields.
// PATCH /api/v1/locations/sessions/:id/input
func (h *Handler) UpdateInput(c *gin.Context) {
	var req transport.UpdateInputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.UpdateInput(c.Request.Context(), identity.UserID(), c.Param("id"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ApplyManual stores coordinates typed into the numeric inputs.
// POST /api/v1/locations/sessions/:id/manual
func (h *Handler) ApplyManual(c *gin.Context) {
	h.coordinateWrite(c, h.svc.ApplyManual)
}

// Pick stores a coordinate chosen on the interactive map.
// POST /api/v1/locations/sessions/:id/pick
func (h *Handler) Pick(c *gin.Context) {
	h.coordinateWrite(c, h.svc.Pick)
}

type coordinateWriter func(ctx context.Context, owner uuid.UUID, id string, body transport.CoordinateBody) (transport.SessionResponse, error)

func (h *Handler) coordinateWrite(c *gin.Context, write coordinateWriter) {
	var req transport.CoordinateBody
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := write(c.Request.Context(), identity.UserID(), c.Param("id"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Submit flushes pending input and returns the coordinate to persist.
// POST /api/v1/locations/sessions/:id/submit
func (h *Handler) Submit(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	coord, err := h.svc.Submit(c.Request.Context(), identity.UserID(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.SubmitResponse{
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
		Source:    coord.Source,
	})
}

// CloseSession discards a session when the form is cancelled.
// DELETE /api/v1/locations/sessions/:id
func (h *Handler) CloseSession(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	if err := h.svc.Close(c.Request.Context(), identity.UserID(), c.Param("id")); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream pushes every session change as a server-sent event.
// GET /api/v1/locations/sessions/:id/events
func (h *Handler) Stream(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	owner := identity.UserID()
	id := c.Param("id")

	capability, err := h.svc.Capability(owner, id)
	if httpkit.HandleError(c, err) {
		return
	}
	views, cancel, err := h.svc.Subscribe(owner, id)
	if httpkit.HandleError(c, err) {
		return
	}
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case <-keepAlive.C:
			c.SSEvent("ping", "")
			c.Writer.Flush()
		case view, ok := <-views:
			if !ok {
				c.SSEvent("closed", gin.H{"id": id})
				c.Writer.Flush()
				return
			}
			data, err := json.Marshal(h.svc.Describe(view, capability))
			if err != nil {
				continue
			}
			c.SSEvent("session", string(data))
			c.Writer.Flush()
		}
	}
}
