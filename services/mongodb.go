package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"line-register-bot/models"
)

// InitMongoDB connects and pings MongoDB
func InitMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	slog.Info("Connected to MongoDB")
	return client, nil
}

// createIndexes creates the indexes both Mongo stores rely on
func createIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := db.Collection("users").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "last_active", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	if _, err := db.Collection("reports").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "report_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("reports indexes: %w", err)
	}
	return nil
}

// MongoUserStore keeps one document per user in the users collection
type MongoUserStore struct {
	col *mongo.Collection
}

// NewMongoUserStore uses db.users, creating indexes on the way
func NewMongoUserStore(ctx context.Context, db *mongo.Database) (*MongoUserStore, error) {
	if err := createIndexes(ctx, db); err != nil {
		return nil, err
	}
	return &MongoUserStore{col: db.Collection("users")}, nil
}

func (s *MongoUserStore) Get(ctx context.Context, userID string) (*models.UserRecord, error) {
	var rec models.UserRecord
	err := s.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find user %s: %v", ErrStoreUnavailable, userID, err)
	}
	return &rec, nil
}

// Put replaces the whole document, inserting it on first contact
func (s *MongoUserStore) Put(ctx context.Context, rec *models.UserRecord) error {
	_, err := s.col.ReplaceOne(ctx,
		bson.M{"user_id": rec.UserID},
		rec,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("%w: save user %s: %v", ErrStoreUnavailable, rec.UserID, err)
	}
	return nil
}

func (s *MongoUserStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.col.DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("%w: delete user %s: %v", ErrStoreUnavailable, userID, err)
	}
	return nil
}

func (s *MongoUserStore) List(ctx context.Context) ([]*models.UserRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}})
	cursor, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %v", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var users []*models.UserRecord
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("%w: decode users: %v", ErrStoreUnavailable, err)
	}
	return users, nil
}

// MongoReportStore appends completed reports to the reports collection
type MongoReportStore struct {
	col *mongo.Collection
}

// NewMongoReportStore uses db.reports
func NewMongoReportStore(db *mongo.Database) *MongoReportStore {
	return &MongoReportStore{col: db.Collection("reports")}
}

func (s *MongoReportStore) SaveReport(ctx context.Context, report *models.Report) error {
	if _, err := s.col.InsertOne(ctx, report); err != nil {
		return fmt.Errorf("%w: save report %s: %v", ErrStoreUnavailable, report.ReportID, err)
	}
	return nil
}

// ListReports returns the newest reports first
func (s *MongoReportStore) ListReports(ctx context.Context, limit int) ([]*models.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list reports: %v", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var reports []*models.Report
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("%w: decode reports: %v", ErrStoreUnavailable, err)
	}
	return reports, nil
}
