package handlers

import (
	"net/http"

	"github.com/nassert93-sketch/PharmaConnect/internal/models"
	"github.com/nassert93-sketch/PharmaConnect/internal/routing"
	"github.com/nassert93-sketch/PharmaConnect/internal/store"

	"github.com/gin-gonic/gin"
)

type PharmacyHandler struct {
	Engine    *routing.Engine
	Store     *store.OrderStore
	Directory *store.Directory
}

// GetOrders lists the orders targeting or owned by the calling pharmacy.
func (h *PharmacyHandler) GetOrders(c *gin.Context) {
	pharmacyID := c.GetString("user_pharmacy_id")
	orders, err := h.Store.OrdersForPharmacy(c.Request.Context(), pharmacyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query orders"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// AcceptOrder claims a round-robin order (first conditional write wins) or
// opts in to quoting on a broadcast order.
func (h *PharmacyHandler) AcceptOrder(c *gin.Context) {
	pharmacyID := c.GetString("user_pharmacy_id")

	pharmacy, err := h.Directory.GetPharmacy(c.Request.Context(), pharmacyID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your pharmacy is not listed in the directory"})
		return
	}

	if err := h.Engine.Accept(c.Request.Context(), c.Param("id"), pharmacyID, pharmacy.Name); err != nil {
		respondRoutingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// RefuseOrder is a proactive decline; the engine cascades or cancels.
func (h *PharmacyHandler) RefuseOrder(c *gin.Context) {
	pharmacyID := c.GetString("user_pharmacy_id")
	if err := h.Engine.Refuse(c.Request.Context(), c.Param("id"), pharmacyID); err != nil {
		respondRoutingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type QuotePayload struct {
	Items         []models.PrescriptionItem `json:"items" binding:"required"`
	DeliveryFee   float64                   `json:"deliveryFee"`
	EstimatedTime int                       `json:"estimatedTime"`
}

// SubmitQuote validates and appends the pharmacy's priced response.
func (h *PharmacyHandler) SubmitQuote(c *gin.Context) {
	pharmacyID := c.GetString("user_pharmacy_id")

	var payload QuotePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.DeliveryFee == 0 {
		payload.DeliveryFee = 500
	}
	if payload.EstimatedTime == 0 {
		payload.EstimatedTime = 15
	}

	pharmacy, err := h.Directory.GetPharmacy(c.Request.Context(), pharmacyID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Your pharmacy is not listed in the directory"})
		return
	}

	quote, err := h.Engine.SubmitQuote(c.Request.Context(), c.Param("id"), pharmacyID, pharmacy.Name,
		payload.Items, payload.DeliveryFee, payload.EstimatedTime)
	if err != nil {
		respondRoutingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quote)
}

// MarkReady moves a confirmed order to READY_FOR_PICKUP.
func (h *PharmacyHandler) MarkReady(c *gin.Context) {
	pharmacyID := c.GetString("user_pharmacy_id")
	if err := h.Engine.MarkReady(c.Request.Context(), c.Param("id"), pharmacyID); err != nil {
		respondRoutingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

type StatusPayload struct {
	Online *bool `json:"online" binding:"required"`
}

// SetStatus toggles the pharmacy's availability. The dispatch selector
// re-reads the flag at every decision, so going offline stops new orders
// immediately without touching in-flight ones.
func (h *PharmacyHandler) SetStatus(c *gin.Context) {
	pharmacyID := c.GetString("user_pharmacy_id")

	var payload StatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Directory.SetOnline(c.Request.Context(), pharmacyID, *payload.Online); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "online": *payload.Online})
}
