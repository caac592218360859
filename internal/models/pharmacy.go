package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pharmacy is a directory entry. The routing engine reads only id, distance
// and online; the rest is display data for the patient apps.
type Pharmacy struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	PharmacyID string             `bson:"pharmacyID" json:"id"` // e.g. "ph-1"
	Name       string             `bson:"name" json:"name"`
	Address    string             `bson:"address" json:"address"`
	Distance   float64            `bson:"distance" json:"distance"` // km from the delivery zone, ranking key
	Online     bool               `bson:"online" json:"online"`

	ResponseTime int     `bson:"responseTime,omitempty" json:"responseTime,omitempty"` // minutes, historical average
	StockLevel   int     `bson:"stockLevel,omitempty" json:"stockLevel,omitempty"`
	Rating       float64 `bson:"rating,omitempty" json:"rating,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// RoutingSettings is the live, admin-editable dispatch policy, stored as
// the "routing" document of the config collection. It is read on every
// dispatch decision but snapshotted per order at creation.
type RoutingSettings struct {
	Mode           RoutingMode `bson:"mode" json:"mode"`
	BroadcastCount int         `bson:"broadcastCount" json:"broadcastCount"`
}
