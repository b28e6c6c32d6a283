package repository

import (
	"context"
	"errors"
	"fmt"

	"goally/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const SnapshotCollection = "goal_snapshots"

type snapshotDocument struct {
	Owner           string `bson:"_id"`
	models.Snapshot `bson:",inline"`
}

type mongoSnapshotRepository struct {
	collection *mongo.Collection
	owner      string
}

// NewMongoSnapshotRepositories stores each principal's snapshot as a single
// document in the goal_snapshots collection, keyed by the principal name.
func NewMongoSnapshotRepositories(db *mongo.Database) Factory {
	collection := db.Collection(SnapshotCollection)
	return func(owner string) SnapshotRepository {
		return &mongoSnapshotRepository{
			collection: collection,
			owner:      owner,
		}
	}
}

func (r *mongoSnapshotRepository) Load(ctx context.Context) (models.Snapshot, bool, error) {
	var doc snapshotDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": r.owner}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("failed to load snapshot for %s: %w", r.owner, err)
	}

	snap := doc.Snapshot
	normalize(&snap)
	return snap, true, nil
}

func (r *mongoSnapshotRepository) Save(ctx context.Context, snap models.Snapshot) error {
	normalize(&snap)
	doc := snapshotDocument{Owner: r.owner, Snapshot: snap}

	filter := bson.M{"_id": r.owner}
	_, err := r.collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save snapshot for %s: %w", r.owner, err)
	}

	return nil
}

// GetSnapshotSizes reports, per owner, how many goals, key results and
// initiatives are stored, most recently modified first.
func GetSnapshotSizes(ctx context.Context, db *mongo.Database) ([]bson.M, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$project", Value: bson.M{
			"goals":         bson.M{"$size": bson.M{"$ifNull": []any{"$goals", []any{}}}},
			"key_results":   bson.M{"$size": bson.M{"$ifNull": []any{"$key_results", []any{}}}},
			"initiatives":   bson.M{"$size": bson.M{"$ifNull": []any{"$initiatives", []any{}}}},
			"last_modified": 1,
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"last_modified": -1}}},
	}

	cursor, err := db.Collection(SnapshotCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []bson.M
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	return results, nil
}
