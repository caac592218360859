package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RolePatient  = "PATIENT"
	RolePharmacy = "PHARMACY"
	RoleDriver   = "DRIVER"
	RoleAdmin    = "ADMIN"
)

const (
	UserPending  = "PENDING"
	UserApproved = "APPROVED"
	UserRejected = "REJECTED"
)

type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UID      string             `bson:"uid" json:"uid"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Phone    string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Password string             `bson:"password" json:"-"`
	PhotoURL string             `bson:"photoURL,omitempty" json:"photoURL,omitempty"`
	Role     string             `bson:"role" json:"role"`
	Status   string             `bson:"status" json:"status"` // PENDING until an admin approves

	// Pharmacy accounts are linked to a directory entry.
	PharmacyID      string `bson:"pharmacyID,omitempty" json:"pharmacyId,omitempty"`
	PharmacyName    string `bson:"pharmacyName,omitempty" json:"pharmacyName,omitempty"`
	PharmacyAddress string `bson:"pharmacyAddress,omitempty" json:"pharmacyAddress,omitempty"`
	LicenseNumber   string `bson:"licenseNumber,omitempty" json:"licenseNumber,omitempty"`

	// Driver accounts.
	VehicleType  string `bson:"vehicleType,omitempty" json:"vehicleType,omitempty"`
	VehiclePlate string `bson:"vehiclePlate,omitempty" json:"vehiclePlate,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
