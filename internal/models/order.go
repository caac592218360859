package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPendingAnalysis OrderStatus = "PENDING_ANALYSIS"
	StatusAwaitingQuotes  OrderStatus = "AWAITING_QUOTES"
	StatusPreparing       OrderStatus = "PREPARING"
	StatusReadyForPickup  OrderStatus = "READY_FOR_PICKUP"
	StatusOutForDelivery  OrderStatus = "OUT_FOR_DELIVERY"
	StatusDelivered       OrderStatus = "DELIVERED"
	StatusCancelled       OrderStatus = "CANCELLED"
)

// RoutingMode is snapshotted onto the order at creation time. An in-flight
// order keeps its mode even if the admin changes the global routing config.
type RoutingMode string

const (
	ModeRoundRobin RoutingMode = "round-robin"
	ModeBroadcast  RoutingMode = "broadcast"
)

// PrescriptionItem is one line of a prescription or of a pharmacy quote.
type PrescriptionItem struct {
	Name           string  `bson:"name" json:"name"`
	Dosage         string  `bson:"dosage,omitempty" json:"dosage"`
	Quantity       int     `bson:"quantity" json:"quantity"`
	IsPsychotropic bool    `bson:"isPsychotropic" json:"isPsychotropic"`
	IsColdChain    bool    `bson:"isColdChain,omitempty" json:"isColdChain,omitempty"`
	Status         string  `bson:"status,omitempty" json:"status,omitempty"` // AVAILABLE, UNAVAILABLE, GENERIC_AVAILABLE, PENDING
	Price          float64 `bson:"price,omitempty" json:"price,omitempty"`
	IsGeneric      bool    `bson:"isGeneric,omitempty" json:"isGeneric,omitempty"`
	Packaging      string  `bson:"packaging,omitempty" json:"packaging,omitempty"`
}

// Quote is a priced response from one pharmacy. Immutable once appended;
// at most one per pharmacy per order.
type Quote struct {
	PharmacyID    string             `bson:"pharmacyId" json:"pharmacyId"`
	PharmacyName  string             `bson:"pharmacyName" json:"pharmacyName"`
	Items         []PrescriptionItem `bson:"items" json:"items"`
	TotalAmount   float64            `bson:"totalAmount" json:"totalAmount"`
	DeliveryFee   float64            `bson:"deliveryFee" json:"deliveryFee"`
	EstimatedTime int                `bson:"estimatedTime" json:"estimatedTime"` // minutes
}

type Order struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID   string             `bson:"orderID" json:"id"` // CMD-<n>
	PatientID string             `bson:"patientId" json:"patientId"`

	PatientName  string `bson:"patientName" json:"patientName"`
	PharmacyID   string `bson:"pharmacyId,omitempty" json:"pharmacyId,omitempty"`
	PharmacyName string `bson:"pharmacyName,omitempty" json:"pharmacyName,omitempty"`
	DriverID     string `bson:"driverId,omitempty" json:"driverId,omitempty"`

	Status OrderStatus `bson:"status" json:"status"`

	Items                  []PrescriptionItem `bson:"items" json:"items"`
	IsPsychotropicDetected bool               `bson:"isPsychotropicDetected" json:"isPsychotropicDetected"`
	TotalAmount            float64            `bson:"totalAmount,omitempty" json:"totalAmount,omitempty"`
	DeliveryFee            float64            `bson:"deliveryFee,omitempty" json:"deliveryFee,omitempty"`
	DeliveryAddress        string             `bson:"deliveryAddress" json:"deliveryAddress"`
	Quotes                 []Quote            `bson:"quotes" json:"quotes"`
	PrescriptionImageURL   string             `bson:"prescriptionImageUrl,omitempty" json:"prescriptionImageUrl,omitempty"`

	// Routing fields. targetedPharmacyIds and refusedByPharmacyIds are
	// disjoint at all times; refusedByPharmacyIds only grows.
	RoutingMode           RoutingMode `bson:"routingMode" json:"routingMode"`
	TargetedPharmacyIDs   []string    `bson:"targetedPharmacyIds" json:"targetedPharmacyIds"`
	RefusedByPharmacyIDs  []string    `bson:"refusedByPharmacyIds" json:"refusedByPharmacyIds"`
	AcceptedByPharmacyIDs []string    `bson:"acceptedByPharmacyIds" json:"acceptedByPharmacyIds"`
	Deadline              *time.Time  `bson:"deadline,omitempty" json:"deadline,omitempty"`

	PaymentMethod string `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	PaymentType   string `bson:"paymentType,omitempty" json:"paymentType,omitempty"` // online | cod

	CreatedAt time.Time `bson:"createdAt" json:"timestamp"`
}

// Locked reports whether a winning pharmacy has been committed. A locked
// order is never reassigned or cancelled by the sweep.
func (o *Order) Locked() bool {
	return o.PharmacyID != ""
}

// QuoteBy returns the quote submitted by the given pharmacy, if any.
func (o *Order) QuoteBy(pharmacyID string) (Quote, bool) {
	for _, q := range o.Quotes {
		if q.PharmacyID == pharmacyID {
			return q, true
		}
	}
	return Quote{}, false
}

// IsTargeted reports whether the pharmacy is currently invited to respond.
func (o *Order) IsTargeted(pharmacyID string) bool {
	for _, id := range o.TargetedPharmacyIDs {
		if id == pharmacyID {
			return true
		}
	}
	return false
}

// HasAccepted reports whether the pharmacy opted in to quote (broadcast mode).
func (o *Order) HasAccepted(pharmacyID string) bool {
	for _, id := range o.AcceptedByPharmacyIDs {
		if id == pharmacyID {
			return true
		}
	}
	return false
}
