package database

import (
	"context"
	"fmt"
	"time"

	repository "goally/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateSnapshotIndexes prepares the goal_snapshots collection. Documents are
// keyed by owner in _id, so only the size report needs a secondary index.
func CreateSnapshotIndexes(ctx context.Context, db *mongo.Database) (string, error) {
	collection := db.Collection(repository.SnapshotCollection)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// REPORTING: most recently modified hierarchies first
	// Used by: GetSnapshotSizes
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "last_modified", Value: -1}},
		Options: options.Index().SetName("idx_last_modified"),
	}

	name, err := collection.Indexes().CreateOne(ctx, index)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot indexes: %w", err)
	}
	return name, nil
}
