package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nassert93-sketch/PharmaConnect/config"
	"github.com/nassert93-sketch/PharmaConnect/internal/auth"
	"github.com/nassert93-sketch/PharmaConnect/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserHandler struct {
	DB  *mongo.Database
	Cfg config.Config
}

type LoginPayload struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *UserHandler) Login(c *gin.Context) {
	var payload LoginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	err := h.DB.Collection("users").FindOne(context.Background(), bson.M{"email": strings.ToLower(payload.Email)}).Decode(&user)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if !auth.CheckPasswordHash(payload.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	switch user.Status {
	case models.UserPending:
		c.JSON(http.StatusForbidden, gin.H{"error": "Your account is awaiting approval"})
		return
	case models.UserRejected:
		c.JSON(http.StatusForbidden, gin.H{"error": "Your account has been rejected"})
		return
	}

	expiration, err := time.ParseDuration(h.Cfg.JWT.Expiration)
	if err != nil || expiration <= 0 {
		expiration = 24 * time.Hour
	}
	token, err := auth.GenerateJWT(user.UID, user.Email, user.Role, user.PharmacyID, expiration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

type RegisterPayload struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`

	PharmacyName    string `json:"pharmacyName"`
	PharmacyAddress string `json:"pharmacyAddress"`
	LicenseNumber   string `json:"licenseNumber"`

	VehicleType  string `json:"vehicleType"`
	VehiclePlate string `json:"vehiclePlate"`
}

// Register creates an account. Patients are approved on the spot;
// pharmacies and drivers stay PENDING until an admin reviews them.
func (h *UserHandler) Register(c *gin.Context) {
	var payload RegisterPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := strings.ToUpper(payload.Role)
	switch role {
	case models.RolePatient, models.RolePharmacy, models.RoleDriver:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}
	if role == models.RolePharmacy && (payload.PharmacyName == "" || payload.LicenseNumber == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pharmacy name and license number are required"})
		return
	}

	users := h.DB.Collection("users")
	email := strings.ToLower(payload.Email)
	count, err := users.CountDocuments(context.Background(), bson.M{"email": email})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing accounts"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "An account already exists for this email"})
		return
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	status := models.UserApproved
	if role != models.RolePatient {
		status = models.UserPending
	}

	user := models.User{
		UID:             uuid.NewString(),
		Name:            payload.Name,
		Email:           email,
		Phone:           payload.Phone,
		Password:        hash,
		Role:            role,
		Status:          status,
		PharmacyName:    payload.PharmacyName,
		PharmacyAddress: payload.PharmacyAddress,
		LicenseNumber:   payload.LicenseNumber,
		VehicleType:     payload.VehicleType,
		VehiclePlate:    payload.VehiclePlate,
		CreatedAt:       time.Now(),
	}
	if role == models.RolePharmacy {
		// The directory entry (with its distance) is created by the admin
		// on approval; the id links the two.
		user.PharmacyID = fmt.Sprintf("ph-%s", strings.ToLower(uuid.NewString()[:8]))
	}

	if _, err := users.InsertOne(context.Background(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	c.JSON(http.StatusCreated, user)
}
