package offer

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tailorlink/internal/domain"
	"tailorlink/internal/middleware"
	"tailorlink/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/offers", middleware.RequireRole(string(domain.RoleCustomer)), h.CreateOffer)
	rg.GET("/offers", h.ListOffers)
	rg.GET("/offers/:id", h.GetOffer)
	rg.POST("/offers/:id/negotiate", h.Negotiate)
	rg.POST("/offers/:id/accept", h.Accept)
	rg.PATCH("/offers/:id/status", h.UpdateStatus)
}

func (h *Handler) CreateOffer(c *gin.Context) {
	var req CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	o, err := h.service.CreateOffer(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		h.writeError(c, err, "Failed to create offer")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"offer": o})
}

func (h *Handler) ListOffers(c *gin.Context) {
	offers, err := h.service.ListForUser(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load offers")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"offers": offers})
}

func (h *Handler) GetOffer(c *gin.Context) {
	id, ok := h.offerID(c)
	if !ok {
		return
	}

	o, err := h.service.GetByID(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		h.writeError(c, err, "Failed to load offer")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"offer": o})
}

func (h *Handler) Negotiate(c *gin.Context) {
	id, ok := h.offerID(c)
	if !ok {
		return
	}

	var req NegotiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	o, createdOrder, err := h.service.Negotiate(c.Request.Context(), id, c.GetInt64("user_id"), req)
	if err != nil {
		h.writeError(c, err, "Failed to negotiate offer")
		return
	}

	data := gin.H{"offer": o}
	if createdOrder != nil {
		data["order"] = createdOrder
	}
	response.Success(c, http.StatusOK, data)
}

// Accept is a shorthand for a negotiate call with accepted=true. The body is
// optional; without an amount the fallback chain applies.
func (h *Handler) Accept(c *gin.Context) {
	id, ok := h.offerID(c)
	if !ok {
		return
	}

	var req AcceptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
			return
		}
	}

	o, createdOrder, err := h.service.Negotiate(c.Request.Context(), id, c.GetInt64("user_id"),
		NegotiateRequest{Accepted: true, Amount: req.Amount})
	if err != nil {
		h.writeError(c, err, "Failed to accept offer")
		return
	}

	data := gin.H{"offer": o}
	if createdOrder != nil {
		data["order"] = createdOrder
	}
	response.Success(c, http.StatusOK, data)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := h.offerID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	actorID := c.GetInt64("user_id")

	var (
		o   *domain.Offer
		err error
	)
	switch req.Status {
	case string(domain.OfferCancelled):
		o, err = h.service.Cancel(c.Request.Context(), id, actorID)
	case string(domain.OfferRejected):
		o, err = h.service.Reject(c.Request.Context(), id, actorID)
	default:
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Status must be cancelled or rejected")
		return
	}
	if err != nil {
		h.writeError(c, err, "Failed to update offer status")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"offer": o})
}

func (h *Handler) offerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid offer id")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid amount, description or status")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Offer or tailor not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Action not permitted for this actor")
	case errors.Is(err, ErrConflict):
		response.Error(c, http.StatusConflict, "CONFLICT", "Offer state does not permit this action")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}
