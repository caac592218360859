package store

import (
	"context"
	"errors"
	"time"

	"github.com/nassert93-sketch/PharmaConnect/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrPharmacyNotFound is returned for unknown pharmacy ids.
var ErrPharmacyNotFound = errors.New("pharmacy not found")

// Directory is the pharmacy roster. The engine reads it fresh at every
// dispatch decision; the online flag is mutated here by the pharmacy's
// own status toggle.
type Directory struct {
	db *mongo.Database
}

func NewDirectory(db *mongo.Database) *Directory {
	return &Directory{db: db}
}

func (d *Directory) pharmacies() *mongo.Collection {
	return d.db.Collection("pharmacies")
}

// ListPharmacies returns the roster in stable insertion order, which is
// the deterministic tie-break for equidistant pharmacies.
func (d *Directory) ListPharmacies(ctx context.Context) ([]models.Pharmacy, error) {
	cursor, err := d.pharmacies().Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var pharmacies []models.Pharmacy
	if err = cursor.All(ctx, &pharmacies); err != nil {
		return nil, err
	}
	if pharmacies == nil {
		pharmacies = []models.Pharmacy{}
	}
	return pharmacies, nil
}

func (d *Directory) GetPharmacy(ctx context.Context, pharmacyID string) (*models.Pharmacy, error) {
	var p models.Pharmacy
	err := d.pharmacies().FindOne(ctx, bson.M{"pharmacyID": pharmacyID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, ErrPharmacyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *Directory) CreatePharmacy(ctx context.Context, p *models.Pharmacy) error {
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	_, err := d.pharmacies().InsertOne(ctx, p)
	return err
}

func (d *Directory) UpdatePharmacy(ctx context.Context, pharmacyID string, fields bson.M) error {
	fields["updatedAt"] = time.Now()
	res, err := d.pharmacies().UpdateOne(ctx,
		bson.M{"pharmacyID": pharmacyID},
		bson.M{"$set": fields},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrPharmacyNotFound
	}
	return nil
}

func (d *Directory) DeletePharmacy(ctx context.Context, pharmacyID string) error {
	res, err := d.pharmacies().DeleteOne(ctx, bson.M{"pharmacyID": pharmacyID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrPharmacyNotFound
	}
	return nil
}

// SetOnline flips the availability flag read by the dispatch selector.
func (d *Directory) SetOnline(ctx context.Context, pharmacyID string, online bool) error {
	return d.UpdatePharmacy(ctx, pharmacyID, bson.M{"online": online})
}
