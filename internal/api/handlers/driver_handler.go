package handlers

import (
	"net/http"

	"github.com/nassert93-sketch/PharmaConnect/internal/routing"
	"github.com/nassert93-sketch/PharmaConnect/internal/store"

	"github.com/gin-gonic/gin"
)

type DriverHandler struct {
	Engine *routing.Engine
	Store  *store.OrderStore
}

// GetOrders lists unclaimed pickups plus the driver's own deliveries.
func (h *DriverHandler) GetOrders(c *gin.Context) {
	driverID := c.GetString("user_uid")
	orders, err := h.Store.OrdersForDriver(c.Request.Context(), driverID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query orders"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// PickupOrder claims a READY_FOR_PICKUP order for this driver. First come,
// first served; a second driver gets a conflict.
func (h *DriverHandler) PickupOrder(c *gin.Context) {
	driverID := c.GetString("user_uid")
	if err := h.Engine.ClaimDelivery(c.Request.Context(), c.Param("id"), driverID); err != nil {
		respondRoutingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// DeliverOrder marks the driver's claimed order as delivered.
func (h *DriverHandler) DeliverOrder(c *gin.Context) {
	driverID := c.GetString("user_uid")
	if err := h.Engine.CompleteDelivery(c.Request.Context(), c.Param("id"), driverID); err != nil {
		respondRoutingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
