package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// PaymentMethod is admin-managed display data. The routing engine never
// inspects it; the chosen code/type are carried on the order as-is.
type PaymentMethod struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Code   string             `bson:"code" json:"code"` // e.g. "waafi", "cod"
	Name   string             `bson:"name" json:"name"`
	Icon   string             `bson:"icon" json:"icon"`
	Type   string             `bson:"type" json:"type"` // online | cod
	Logo   string             `bson:"logo,omitempty" json:"logo,omitempty"`
	Active bool               `bson:"active" json:"active"`
}
