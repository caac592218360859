package handlers

import (
	"net/http"

	"github.com/nassert93-sketch/PharmaConnect/internal/models"
	"github.com/nassert93-sketch/PharmaConnect/internal/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type AdminHandler struct {
	Store     *store.OrderStore
	Directory *store.Directory
	Policy    *store.Policy
	DB        *mongo.Database
}

// GetRoutingConfig returns the live dispatch settings.
func (h *AdminHandler) GetRoutingConfig(c *gin.Context) {
	settings, err := h.Policy.RoutingSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load routing config"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateRoutingConfig replaces the dispatch settings. Orders already created
// keep the mode they were dispatched under.
func (h *AdminHandler) UpdateRoutingConfig(c *gin.Context) {
	var payload models.RoutingSettings
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.Mode != models.ModeRoundRobin && payload.Mode != models.ModeBroadcast {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be round-robin or broadcast"})
		return
	}
	if payload.BroadcastCount < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "broadcastCount must be at least 1"})
		return
	}

	if err := h.Policy.SaveRoutingSettings(c.Request.Context(), payload); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save routing config"})
		return
	}
	c.JSON(http.StatusOK, payload)
}

// GetAllOrders lists every order, optionally filtered by ?status=.
func (h *AdminHandler) GetAllOrders(c *gin.Context) {
	status := models.OrderStatus(c.Query("status"))
	orders, err := h.Store.AllOrders(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query orders"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GetPharmacies lists the full directory, offline entries included.
func (h *AdminHandler) GetPharmacies(c *gin.Context) {
	pharmacies, err := h.Directory.ListPharmacies(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query pharmacies"})
		return
	}
	c.JSON(http.StatusOK, pharmacies)
}

func (h *AdminHandler) CreatePharmacy(c *gin.Context) {
	var pharmacy models.Pharmacy
	if err := c.ShouldBindJSON(&pharmacy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if pharmacy.PharmacyID == "" || pharmacy.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and name are required"})
		return
	}
	if existing, _ := h.Directory.GetPharmacy(c.Request.Context(), pharmacy.PharmacyID); existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Pharmacy already exists"})
		return
	}

	if err := h.Directory.CreatePharmacy(c.Request.Context(), &pharmacy); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create pharmacy"})
		return
	}
	c.JSON(http.StatusCreated, pharmacy)
}

type PharmacyUpdatePayload struct {
	Name     *string  `json:"name"`
	Address  *string  `json:"address"`
	Distance *float64 `json:"distance"`
	Online   *bool    `json:"online"`
}

func (h *AdminHandler) UpdatePharmacy(c *gin.Context) {
	var payload PharmacyUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := bson.M{}
	if payload.Name != nil {
		fields["name"] = *payload.Name
	}
	if payload.Address != nil {
		fields["address"] = *payload.Address
	}
	if payload.Distance != nil {
		fields["distance"] = *payload.Distance
	}
	if payload.Online != nil {
		fields["online"] = *payload.Online
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	if err := h.Directory.UpdatePharmacy(c.Request.Context(), c.Param("id"), fields); err != nil {
		if err == store.ErrPharmacyNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pharmacy not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update pharmacy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *AdminHandler) DeletePharmacy(c *gin.Context) {
	if err := h.Directory.DeletePharmacy(c.Request.Context(), c.Param("id")); err != nil {
		if err == store.ErrPharmacyNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Pharmacy not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete pharmacy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GetUsers lists accounts, optionally filtered by ?status= (e.g. PENDING
// for the approval queue) and ?role=.
func (h *AdminHandler) GetUsers(c *gin.Context) {
	filter := bson.M{}
	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}
	if role := c.Query("role"); role != "" {
		filter["role"] = role
	}

	cursor, err := h.DB.Collection("users").Find(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query users"})
		return
	}
	defer cursor.Close(c.Request.Context())

	var users []models.User
	if err = cursor.All(c.Request.Context(), &users); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode users"})
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}

// ApproveUser clears a pending pharmacy or driver account for login. A
// pharmacy approval also publishes its directory entry so it starts
// receiving orders.
func (h *AdminHandler) ApproveUser(c *gin.Context) {
	h.setUserStatus(c, models.UserApproved)
}

func (h *AdminHandler) RejectUser(c *gin.Context) {
	h.setUserStatus(c, models.UserRejected)
}

func (h *AdminHandler) setUserStatus(c *gin.Context, status string) {
	uid := c.Param("uid")

	var user models.User
	err := h.DB.Collection("users").FindOne(c.Request.Context(), bson.M{"uid": uid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query user"})
		return
	}

	_, err = h.DB.Collection("users").UpdateOne(c.Request.Context(),
		bson.M{"uid": uid},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	if status == models.UserApproved && user.Role == models.RolePharmacy && user.PharmacyID != "" {
		if existing, _ := h.Directory.GetPharmacy(c.Request.Context(), user.PharmacyID); existing == nil {
			entry := models.Pharmacy{
				PharmacyID: user.PharmacyID,
				Name:       user.PharmacyName,
				Address:    user.PharmacyAddress,
				Online:     false,
			}
			if err := h.Directory.CreatePharmacy(c.Request.Context(), &entry); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "User approved but pharmacy listing failed"})
				return
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "userStatus": status})
}

// GetPaymentMethods lists every configured method, inactive ones included.
func (h *AdminHandler) GetPaymentMethods(c *gin.Context) {
	cursor, err := h.DB.Collection("payment_methods").Find(c.Request.Context(), bson.M{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query payment methods"})
		return
	}
	defer cursor.Close(c.Request.Context())

	var methods []models.PaymentMethod
	if err = cursor.All(c.Request.Context(), &methods); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode payment methods"})
		return
	}
	if methods == nil {
		methods = []models.PaymentMethod{}
	}
	c.JSON(http.StatusOK, methods)
}

func (h *AdminHandler) CreatePaymentMethod(c *gin.Context) {
	var method models.PaymentMethod
	if err := c.ShouldBindJSON(&method); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if method.Code == "" || method.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and name are required"})
		return
	}
	if method.Type != "online" && method.Type != "cod" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be online or cod"})
		return
	}

	count, err := h.DB.Collection("payment_methods").CountDocuments(c.Request.Context(), bson.M{"code": method.Code})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query payment methods"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Payment method already exists"})
		return
	}

	if _, err := h.DB.Collection("payment_methods").InsertOne(c.Request.Context(), method); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment method"})
		return
	}
	c.JSON(http.StatusCreated, method)
}

type PaymentMethodUpdatePayload struct {
	Name   *string `json:"name"`
	Icon   *string `json:"icon"`
	Logo   *string `json:"logo"`
	Active *bool   `json:"active"`
}

func (h *AdminHandler) UpdatePaymentMethod(c *gin.Context) {
	var payload PaymentMethodUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := bson.M{}
	if payload.Name != nil {
		fields["name"] = *payload.Name
	}
	if payload.Icon != nil {
		fields["icon"] = *payload.Icon
	}
	if payload.Logo != nil {
		fields["logo"] = *payload.Logo
	}
	if payload.Active != nil {
		fields["active"] = *payload.Active
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	res, err := h.DB.Collection("payment_methods").UpdateOne(c.Request.Context(),
		bson.M{"code": c.Param("code")},
		bson.M{"$set": fields},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment method"})
		return
	}
	if res.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment method not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *AdminHandler) DeletePaymentMethod(c *gin.Context) {
	res, err := h.DB.Collection("payment_methods").DeleteOne(c.Request.Context(), bson.M{"code": c.Param("code")})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete payment method"})
		return
	}
	if res.DeletedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment method not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
