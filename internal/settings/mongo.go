package settings

import (
	"context"
	"errors"
	"fmt"

	"helipad/pkg/config"
	"helipad/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Settings"

// MongoProvider reads one settings document per resource on every Load.
type MongoProvider struct {
	cfg        *config.Config
	collection *mongo.Collection
	resourceID string
}

func NewMongoProvider(cfg *config.Config) *MongoProvider {
	return &MongoProvider{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
		resourceID: cfg.ResourceID,
	}
}

func (p *MongoProvider) Load(ctx context.Context) (*model.Settings, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.DBReadTimeout)
	defer cancel()

	var s model.Settings
	if err := p.collection.FindOne(ctx, bson.M{"_id": p.resourceID}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("no settings document for resource %s", p.resourceID)
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
