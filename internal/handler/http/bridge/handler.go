// Package bridge exposes the webhook and demo ticket HTTP endpoints.
package bridge

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voicebridge-backend/internal/acs"
	"voicebridge-backend/internal/gateway"
	"voicebridge-backend/internal/tickets"
	apperrors "voicebridge-backend/pkg/errors"
	"voicebridge-backend/pkg/logger"
	"voicebridge-backend/pkg/response"
)

// Handler routes webhook and ticket requests to the gateway and store
type Handler struct {
	gateway *gateway.Gateway
	tickets tickets.Store
}

// NewHandler creates the HTTP handler set
func NewHandler(gw *gateway.Gateway, store tickets.Store) *Handler {
	return &Handler{gateway: gw, tickets: store}
}

// Home responds with a plaintext liveness message
// GET /
func (h *Handler) Home(c *gin.Context) {
	c.String(http.StatusOK, "Hello ACS CallAutomation!")
}

// IncomingCall receives call-offer notifications from Event Grid. The
// body may be a single event or a batch; a subscription-validation
// handshake is answered with the echoed validation code.
// POST /api/incomingCall
func (h *Handler) IncomingCall(c *gin.Context) {
	var events []acs.EventGridEvent
	if err := decodeSingleOrBatch(c.Request.Body, &events); err != nil {
		logger.Warn("malformed incoming call payload", zap.Error(err))
		response.ValidationError(c, "malformed event payload")
		return
	}

	validation, err := h.gateway.HandleInboundCall(c.Request.Context(), events)
	if err != nil {
		appErr := apperrors.GetAppError(err)
		response.Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
		return
	}

	if validation != nil {
		c.JSON(http.StatusOK, validation)
		return
	}
	c.Status(http.StatusOK)
}

// Callbacks receives call lifecycle notifications. It always answers
// 200; the platform has nothing useful to do with a failure.
// POST /api/callbacks/:contextId
func (h *Handler) Callbacks(c *gin.Context) {
	contextID := c.Param("contextId")

	var events []acs.CallbackEvent
	if err := decodeSingleOrBatch(c.Request.Body, &events); err != nil {
		logger.Warn("malformed callback payload", zap.String("context_id", contextID), zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	h.gateway.HandleCallback(c.Request.Context(), contextID, events)
	c.Status(http.StatusOK)
}

// EndCall hangs up the tracked active call
// POST /api/endCall
func (h *Handler) EndCall(c *gin.Context) {
	if err := h.gateway.EndActiveCall(c.Request.Context()); err != nil {
		appErr := apperrors.GetAppError(err)
		response.Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Call ended"})
}

// GetTicket returns the ticket for an id. The raw ticket object is the
// body because it doubles as the get_ticket tool result text.
// GET /api/ticket/:id
func (h *Handler) GetTicket(c *gin.Context) {
	ticket, err := h.tickets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		appErr := apperrors.GetAppError(err)
		response.Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

type createTicketRequest struct {
	Description string `json:"description"`
}

// CreateTicket creates a demo ticket
// POST /api/ticket
func (h *Handler) CreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body")
		return
	}

	ticket, err := h.tickets.Create(c.Request.Context(), req.Description)
	if err != nil {
		appErr := apperrors.GetAppError(err)
		response.Error(c, appErr.StatusCode, string(appErr.Code), appErr.Message)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// decodeSingleOrBatch decodes a JSON body that may be either one object
// or an array of objects into the slice pointed to by out.
func decodeSingleOrBatch[T any](r io.Reader, out *[]T) error {
	body, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return err
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}

	var single T
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return err
	}
	*out = []T{single}
	return nil
}
