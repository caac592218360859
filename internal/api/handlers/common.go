package handlers

import (
	"errors"
	"net/http"

	"github.com/nassert93-sketch/PharmaConnect/internal/routing"

	"github.com/gin-gonic/gin"
)

// respondRoutingError maps engine errors onto HTTP statuses. Stale actions
// are conflicts, not failures: the client should refresh to current truth.
func respondRoutingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, routing.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, routing.ErrNoCandidate):
		c.JSON(http.StatusConflict, gin.H{"error": "No pharmacy available at the moment"})
	case errors.Is(err, routing.ErrStaleAction):
		c.JSON(http.StatusConflict, gin.H{"error": "Order was already handled, refresh to see its current state"})
	case errors.Is(err, routing.ErrInvalidQuote):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
