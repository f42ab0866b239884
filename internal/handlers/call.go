package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-service/internal/calls"
)

// CallHandler starts and inspects calls. Joining, state changes and
// signalling happen over /ws/calls/:call_id.
type CallHandler struct {
	manager *calls.Manager
	access  calls.Access
}

func NewCallHandler(manager *calls.Manager, access calls.Access) *CallHandler {
	return &CallHandler{manager: manager, access: access}
}

// StartChatCall handles POST /chats/:chat_id/call.
func (h *CallHandler) StartChatCall(c *gin.Context) {
	h.start(c, calls.KindDirect, "chat_id", "chat")
}

// StartGroupCall handles POST /groups/:group_id/call.
func (h *CallHandler) StartGroupCall(c *gin.Context) {
	h.start(c, calls.KindGroup, "group_id", "group")
}

func (h *CallHandler) start(c *gin.Context, kind calls.Kind, param, label string) {
	resourceID, ok := intParam(c, param, label)
	if !ok {
		return
	}
	userID := c.GetInt("userID")
	allowed, err := h.access.Allowed(c.Request.Context(), calls.Call{Kind: kind, ResourceID: resourceID}, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	call := h.manager.Start(kind, resourceID, userID)
	c.JSON(http.StatusCreated, gin.H{"call": call, "presets": callPresets()})
}

// GetCall handles GET /calls/:call_id.
func (h *CallHandler) GetCall(c *gin.Context) {
	call, err := h.manager.Get(c.Param("call_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	allowed, err := h.access.Allowed(c.Request.Context(), call, c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	participants, err := h.manager.Participants(call.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"call": call, "participants": participants})
}

func callPresets() map[calls.Quality]calls.Preset {
	out := map[calls.Quality]calls.Preset{}
	for _, q := range []calls.Quality{calls.QualityLow, calls.QualityMedium, calls.QualityHigh} {
		if p, err := calls.PresetFor(q); err == nil {
			out[q] = p
		}
	}
	return out
}
