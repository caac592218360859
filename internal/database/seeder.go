package database

import (
	"context"
	"log"
	"time"

	"github.com/nassert93-sketch/PharmaConnect/internal/auth"
	"github.com/nassert93-sketch/PharmaConnect/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var seedPharmacies = []models.Pharmacy{
	{PharmacyID: "ph-1", Name: "Pharmacie de la Paix", Address: "Quartier 4, Djibouti-Ville", Distance: 1.2, Online: true, ResponseTime: 8, StockLevel: 95, Rating: 4.8},
	{PharmacyID: "ph-2", Name: "Pharmacie Centrale", Address: "Place Lagarde, Plateau", Distance: 2.5, Online: true, ResponseTime: 12, StockLevel: 100, Rating: 4.5},
	{PharmacyID: "ph-3", Name: "Pharmacie d'Héron", Address: "Rue d'Éthiopie, Héron", Distance: 0.8, Online: true, ResponseTime: 5, StockLevel: 70, Rating: 4.9},
}

var seedPaymentMethods = []models.PaymentMethod{
	{Code: "waafi", Name: "Waafi", Icon: "fa-wallet", Type: "online", Active: true},
	{Code: "dmoney", Name: "D-Money", Icon: "fa-money-bill", Type: "online", Active: true},
	{Code: "cacpay", Name: "Cac Pay", Icon: "fa-credit-card", Type: "online", Active: true},
	{Code: "cod", Name: "Paiement à la livraison", Icon: "fa-truck", Type: "cod", Active: true},
}

// Seed populates the base data on an empty database: the admin account,
// the pharmacy roster, payment methods and the order counter. Existing
// data is never touched.
func Seed(ctx context.Context, db *mongo.Database) error {
	if err := seedAdmin(ctx, db); err != nil {
		return err
	}
	if err := seedCollection(ctx, db, "pharmacies", func() []interface{} {
		docs := make([]interface{}, 0, len(seedPharmacies))
		now := time.Now()
		for _, p := range seedPharmacies {
			p.CreatedAt = now
			p.UpdatedAt = now
			docs = append(docs, p)
		}
		return docs
	}); err != nil {
		return err
	}
	if err := seedCollection(ctx, db, "payment_methods", func() []interface{} {
		docs := make([]interface{}, 0, len(seedPaymentMethods))
		for _, m := range seedPaymentMethods {
			docs = append(docs, m)
		}
		return docs
	}); err != nil {
		return err
	}
	return seedCounter(ctx, db)
}

func seedAdmin(ctx context.Context, db *mongo.Database) error {
	users := db.Collection("users")
	count, err := users.CountDocuments(ctx, bson.M{"role": models.RoleAdmin})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword("admin123")
	if err != nil {
		return err
	}
	admin := models.User{
		UID:       uuid.NewString(),
		Name:      "Administrator",
		Email:     "admin@pharmaconnect.local",
		Password:  hash,
		Role:      models.RoleAdmin,
		Status:    models.UserApproved,
		CreatedAt: time.Now(),
	}
	if _, err := users.InsertOne(ctx, admin); err != nil {
		return err
	}
	log.Printf("Seeded admin account %s", admin.Email)
	return nil
}

func seedCollection(ctx context.Context, db *mongo.Database, name string, docs func() []interface{}) error {
	collection := db.Collection(name)
	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if _, err := collection.InsertMany(ctx, docs()); err != nil {
		return err
	}
	log.Printf("Seeded collection %s", name)
	return nil
}

func seedCounter(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("counters").UpdateOne(ctx,
		bson.M{"_id": "orders"},
		bson.M{"$setOnInsert": bson.M{"seq": int64(20)}},
		options.Update().SetUpsert(true),
	)
	return err
}
