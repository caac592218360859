package store

import (
	"context"

	"github.com/nassert93-sketch/PharmaConnect/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const routingDocID = "routing"

// Policy stores the live dispatch settings as a single document in the
// config collection. Admin edits take effect on the next dispatch
// decision; in-flight orders keep their snapshotted mode.
type Policy struct {
	db *mongo.Database
}

func NewPolicy(db *mongo.Database) *Policy {
	return &Policy{db: db}
}

func (p *Policy) config() *mongo.Collection {
	return p.db.Collection("config")
}

func (p *Policy) RoutingSettings(ctx context.Context) (models.RoutingSettings, error) {
	var doc struct {
		Mode           models.RoutingMode `bson:"mode"`
		BroadcastCount int                `bson:"broadcastCount"`
	}
	err := p.config().FindOne(ctx, bson.M{"_id": routingDocID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return models.RoutingSettings{Mode: models.ModeRoundRobin, BroadcastCount: 3}, nil
	}
	if err != nil {
		return models.RoutingSettings{}, err
	}
	return models.RoutingSettings{Mode: doc.Mode, BroadcastCount: doc.BroadcastCount}, nil
}

func (p *Policy) SaveRoutingSettings(ctx context.Context, s models.RoutingSettings) error {
	_, err := p.config().UpdateOne(ctx,
		bson.M{"_id": routingDocID},
		bson.M{"$set": bson.M{"mode": s.Mode, "broadcastCount": s.BroadcastCount}},
		options.Update().SetUpsert(true),
	)
	return err
}

// EnsureRoutingSettings writes the configured defaults only if no routing
// document exists yet.
func (p *Policy) EnsureRoutingSettings(ctx context.Context, s models.RoutingSettings) error {
	_, err := p.config().UpdateOne(ctx,
		bson.M{"_id": routingDocID},
		bson.M{"$setOnInsert": bson.M{"mode": s.Mode, "broadcastCount": s.BroadcastCount}},
		options.Update().SetUpsert(true),
	)
	return err
}
