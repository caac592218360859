package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nassert93-sketch/PharmaConnect/internal/models"
	"github.com/nassert93-sketch/PharmaConnect/internal/routing"
	"github.com/nassert93-sketch/PharmaConnect/internal/s3"
	"github.com/nassert93-sketch/PharmaConnect/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type OrderHandler struct {
	Engine     *routing.Engine
	Store      *store.OrderStore
	S3Uploader *s3.Uploader
	DB         *mongo.Database
}

// CreateOrder receives a prescription (multipart with an image, or plain
// JSON) and runs the initial dispatch. With no eligible pharmacy no order
// is created and the patient gets an advisory 409.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	patientID := c.GetString("user_uid")

	var patient models.User
	if err := h.DB.Collection("users").FindOne(context.Background(), bson.M{"uid": patientID}).Decode(&patient); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown account"})
		return
	}

	input := routing.CreateOrderInput{
		PatientID:   patientID,
		PatientName: patient.Name,
	}

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		input.DeliveryAddress = c.PostForm("deliveryAddress")

		file, header, err := c.Request.FormFile("prescription")
		if err == nil {
			defer file.Close()
			if h.S3Uploader == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image upload is not configured"})
				return
			}
			contentType := header.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "image/jpeg"
			}
			objectKey := fmt.Sprintf("prescriptions/%s/%s", patientID, uuid.NewString())
			url, err := h.S3Uploader.UploadFile(c.Request.Context(), file, objectKey, contentType)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload prescription image"})
				return
			}
			input.PrescriptionImageURL = url
		}
	} else {
		var payload struct {
			DeliveryAddress string                    `json:"deliveryAddress"`
			Items           []models.PrescriptionItem `json:"items"`
		}
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		input.DeliveryAddress = payload.DeliveryAddress
		input.Items = payload.Items
	}

	if input.DeliveryAddress == "" {
		input.DeliveryAddress = "Djibouti-Ville"
	}

	order, err := h.Engine.CreateOrder(c.Request.Context(), input)
	if err != nil {
		respondRoutingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetMyOrders lists the calling patient's orders, newest first.
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	orders, err := h.Store.OrdersForPatient(c.Request.Context(), c.GetString("user_uid"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query orders"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	order, err := h.Store.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondRoutingError(c, err)
		return
	}
	if order.PatientID != c.GetString("user_uid") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

type SelectQuotePayload struct {
	PharmacyID    string `json:"pharmacyId" binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

// SelectQuote is the patient's pick of one quote. The commit is a single
// conditional write, so a double submit (or a race between two devices)
// resolves to exactly one winner.
func (h *OrderHandler) SelectQuote(c *gin.Context) {
	var payload SelectQuotePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var method models.PaymentMethod
	err := h.DB.Collection("payment_methods").FindOne(context.Background(),
		bson.M{"code": payload.PaymentMethod, "active": true}).Decode(&method)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown or inactive payment method"})
		return
	}

	err = h.Engine.SelectQuote(c.Request.Context(), c.Param("id"), c.GetString("user_uid"),
		payload.PharmacyID, method.Code, method.Type)
	if err != nil {
		respondRoutingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Quote confirmed, the pharmacy is preparing your order"})
}

// ListActivePaymentMethods backs the patient's payment picker.
func (h *OrderHandler) ListActivePaymentMethods(c *gin.Context) {
	cursor, err := h.DB.Collection("payment_methods").Find(context.Background(), bson.M{"active": true})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query payment methods"})
		return
	}
	defer cursor.Close(context.Background())

	var methods []models.PaymentMethod
	if err = cursor.All(context.Background(), &methods); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode payment methods"})
		return
	}
	if methods == nil {
		methods = []models.PaymentMethod{}
	}
	c.JSON(http.StatusOK, methods)
}
