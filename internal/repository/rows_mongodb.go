package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBRowRepository implements RowRepository using MongoDB.
type MongoDBRowRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBRowRepository connects to MongoDB and ensures the row index.
func NewMongoDBRowRepository(uri, database, collection string) (*MongoDBRowRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	coll := client.Database(database).Collection(collection)

	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "row_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ctx, indexModel); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &MongoDBRowRepository{client: client, collection: coll}, nil
}

// FetchRow returns the row with the given id.
func (r *MongoDBRowRepository) FetchRow(ctx context.Context, rowID string) (*model.Row, error) {
	var row model.Row
	err := r.collection.FindOne(ctx, bson.M{"row_id": rowID}).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch row: %w", err)
	}
	return &row, nil
}

// UpsertRow inserts or replaces a row.
func (r *MongoDBRowRepository) UpsertRow(ctx context.Context, row *model.Row) error {
	update := bson.M{"$set": bson.M{"data": row.Data, "updated_at": row.UpdatedAt}}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"row_id": row.ID}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert row: %w", err)
	}
	return nil
}

// GetStats returns statistics about the row collection.
func (r *MongoDBRowRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"driver": "mongodb", "total_rows": count}, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRowRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

var _ RowRepository = (*MongoDBRowRepository)(nil)
