package maps

import (
	"net/http"

	"pickup_portal_backend/platform/apperr"
	"pickup_portal_backend/platform/httpkit"
	"pickup_portal_backend/platform/sanitize"
	"pickup_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const msgShortQuery = "query 'q' is required (min 3 chars)"

// Handler serves address autocomplete for the pickup point form.
type Handler struct {
	svc *Service
	val *validator.Validator
}

// NewHandler creates the lookup handler.
func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// LookupAddress returns suggestions for a partial address.
// GET /api/v1/maps/address-lookup?q=
func (h *Handler) LookupAddress(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgShortQuery, nil)
		return
	}
	req.Query = sanitize.Text(req.Query)
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgShortQuery, err.Error())
		return
	}

	results, err := h.svc.SearchAddress(c.Request.Context(), req.Query)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindUnavailable, "address lookup service unavailable", err))
		return
	}

	httpkit.OK(c, results)
}
