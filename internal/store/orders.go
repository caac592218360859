package store

import (
	"context"
	"time"

	"github.com/nassert93-sketch/PharmaConnect/internal/models"
	"github.com/nassert93-sketch/PharmaConnect/internal/routing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderStore persists orders in the "orders" collection. Mongo applies a
// single-document update atomically, so every precondition lives in the
// update filter and ModifiedCount tells the engine whether its write won.
// There is never a read-modify-write gap on lock-relevant fields.
type OrderStore struct {
	db *mongo.Database
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) orders() *mongo.Collection {
	return s.db.Collection("orders")
}

func (s *OrderStore) InsertOrder(ctx context.Context, o *models.Order) error {
	_, err := s.orders().InsertOne(ctx, o)
	return err
}

func (s *OrderStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var o models.Order
	err := s.orders().FindOne(ctx, bson.M{"orderID": orderID}).Decode(&o)
	if err == mongo.ErrNoDocuments {
		return nil, routing.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// openOrder is the guard shared by every routing write: still awaiting
// quotes and not yet locked to a winner.
func openOrder(orderID string) bson.M {
	return bson.M{
		"orderID":    orderID,
		"status":     models.StatusAwaitingQuotes,
		"pharmacyId": bson.M{"$exists": false},
	}
}

func (s *OrderStore) updated(ctx context.Context, filter, update bson.M) (bool, error) {
	res, err := s.orders().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *OrderStore) RetargetOrder(ctx context.Context, orderID, evictedID, nextID string, deadline time.Time) (bool, error) {
	filter := openOrder(orderID)
	filter["targetedPharmacyIds"] = evictedID
	return s.updated(ctx, filter, bson.M{
		"$addToSet": bson.M{"refusedByPharmacyIds": evictedID},
		"$set": bson.M{
			"targetedPharmacyIds": []string{nextID},
			"deadline":            deadline,
		},
	})
}

func (s *OrderStore) CancelAfterEviction(ctx context.Context, orderID, evictedID string) (bool, error) {
	filter := openOrder(orderID)
	filter["targetedPharmacyIds"] = evictedID
	return s.updated(ctx, filter, bson.M{
		"$addToSet": bson.M{"refusedByPharmacyIds": evictedID},
		"$set": bson.M{
			"status":              models.StatusCancelled,
			"targetedPharmacyIds": []string{},
		},
		"$unset": bson.M{"deadline": ""},
	})
}

func (s *OrderStore) WithdrawTarget(ctx context.Context, orderID, pharmacyID string) (bool, error) {
	filter := openOrder(orderID)
	filter["targetedPharmacyIds"] = pharmacyID
	return s.updated(ctx, filter, bson.M{
		"$addToSet": bson.M{"refusedByPharmacyIds": pharmacyID},
		"$pull": bson.M{
			"targetedPharmacyIds":   pharmacyID,
			"acceptedByPharmacyIds": pharmacyID,
		},
	})
}

func (s *OrderStore) CancelOpen(ctx context.Context, orderID string) (bool, error) {
	return s.updated(ctx, openOrder(orderID), bson.M{
		"$set": bson.M{
			"status":              models.StatusCancelled,
			"targetedPharmacyIds": []string{},
		},
		"$unset": bson.M{"deadline": ""},
	})
}

func (s *OrderStore) ClearDeadline(ctx context.Context, orderID string) (bool, error) {
	return s.updated(ctx, openOrder(orderID), bson.M{
		"$unset": bson.M{"deadline": ""},
	})
}

func (s *OrderStore) LockOrder(ctx context.Context, orderID, pharmacyID, pharmacyName string) (bool, error) {
	filter := openOrder(orderID)
	filter["targetedPharmacyIds"] = pharmacyID
	return s.updated(ctx, filter, bson.M{
		"$set": bson.M{
			"pharmacyId":            pharmacyID,
			"pharmacyName":          pharmacyName,
			"acceptedByPharmacyIds": []string{pharmacyID},
		},
	})
}

func (s *OrderStore) AddAcceptance(ctx context.Context, orderID, pharmacyID string) (bool, error) {
	filter := openOrder(orderID)
	filter["targetedPharmacyIds"] = pharmacyID
	return s.updated(ctx, filter, bson.M{
		"$addToSet": bson.M{"acceptedByPharmacyIds": pharmacyID},
	})
}

func (s *OrderStore) AppendQuote(ctx context.Context, orderID string, q models.Quote) (bool, error) {
	filter := bson.M{
		"orderID":           orderID,
		"status":            models.StatusAwaitingQuotes,
		"quotes.pharmacyId": bson.M{"$ne": q.PharmacyID},
		"$or": []bson.M{
			{"pharmacyId": bson.M{"$exists": false}},
			{"pharmacyId": q.PharmacyID},
		},
	}
	return s.updated(ctx, filter, bson.M{
		"$push": bson.M{"quotes": q},
	})
}

func (s *OrderStore) CommitQuote(ctx context.Context, orderID string, q models.Quote, paymentMethod, paymentType string) (bool, error) {
	filter := bson.M{
		"orderID":           orderID,
		"status":            models.StatusAwaitingQuotes,
		"quotes.pharmacyId": q.PharmacyID,
		"$or": []bson.M{
			{"pharmacyId": bson.M{"$exists": false}},
			{"pharmacyId": q.PharmacyID},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"status":       models.StatusPreparing,
			"pharmacyId":   q.PharmacyID,
			"pharmacyName": q.PharmacyName,
			"items":        q.Items,
			"totalAmount":  q.TotalAmount,
			"deliveryFee":  q.DeliveryFee,
		},
		"$unset": bson.M{"deadline": ""},
	}
	if paymentMethod != "" {
		update["$set"].(bson.M)["paymentMethod"] = paymentMethod
		update["$set"].(bson.M)["paymentType"] = paymentType
	}
	return s.updated(ctx, filter, update)
}

func (s *OrderStore) AdvanceStatus(ctx context.Context, orderID string, from, to models.OrderStatus) (bool, error) {
	return s.updated(ctx,
		bson.M{"orderID": orderID, "status": from},
		bson.M{"$set": bson.M{"status": to}},
	)
}

func (s *OrderStore) ClaimDelivery(ctx context.Context, orderID, driverID string) (bool, error) {
	filter := bson.M{
		"orderID":  orderID,
		"status":   models.StatusReadyForPickup,
		"driverId": bson.M{"$exists": false},
	}
	return s.updated(ctx, filter, bson.M{
		"$set": bson.M{
			"driverId": driverID,
			"status":   models.StatusOutForDelivery,
		},
	})
}

func (s *OrderStore) OrdersPastDeadline(ctx context.Context, now time.Time) ([]models.Order, error) {
	filter := bson.M{
		"status":     models.StatusAwaitingQuotes,
		"pharmacyId": bson.M{"$exists": false},
		"deadline":   bson.M{"$lt": now},
	}
	return s.find(ctx, filter, nil)
}

// NextOrderNumber allocates order numbers from a counters document with an
// atomic $inc, never read-then-write.
func (s *OrderStore) NextOrderNumber(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection("counters").FindOneAndUpdate(ctx,
		bson.M{"_id": "orders"},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func (s *OrderStore) OrdersForPatient(ctx context.Context, patientID string) ([]models.Order, error) {
	return s.find(ctx, bson.M{"patientId": patientID}, newestFirst())
}

// OrdersForPharmacy returns orders owned by or currently targeting the
// pharmacy.
func (s *OrderStore) OrdersForPharmacy(ctx context.Context, pharmacyID string) ([]models.Order, error) {
	filter := bson.M{"$or": []bson.M{
		{"pharmacyId": pharmacyID},
		{"targetedPharmacyIds": pharmacyID},
	}}
	return s.find(ctx, filter, newestFirst())
}

// OrdersForDriver returns unclaimed ready orders plus the driver's own.
func (s *OrderStore) OrdersForDriver(ctx context.Context, driverID string) ([]models.Order, error) {
	filter := bson.M{"$or": []bson.M{
		{"status": models.StatusReadyForPickup, "driverId": bson.M{"$exists": false}},
		{"driverId": driverID},
	}}
	return s.find(ctx, filter, newestFirst())
}

func (s *OrderStore) AllOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.find(ctx, filter, newestFirst())
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
}

func (s *OrderStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Order, error) {
	var cursor *mongo.Cursor
	var err error
	if opts != nil {
		cursor, err = s.orders().Find(ctx, filter, opts)
	} else {
		cursor, err = s.orders().Find(ctx, filter)
	}
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}
