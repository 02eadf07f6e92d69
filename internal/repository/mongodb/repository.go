package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anilytics/agriwarehouse/internal/domain/models"
)

// ErrReportNotFound is returned when no archived report matches the id.
var ErrReportNotFound = errors.New("distribution report not found")

const defaultHistoryLimit = 20

// Repository defines the interface for distribution report storage.
type Repository interface {
	SaveDistributionReport(ctx context.Context, report models.DistributionReport) error
	ListDistributionReports(ctx context.Context, limit int) ([]models.DistributionReport, error)
	GetDistributionReport(ctx context.Context, id string) (models.DistributionReport, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "distribution_reports",
	}, nil
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// SaveDistributionReport archives a distribution plan.
func (r *MongoDBRepository) SaveDistributionReport(ctx context.Context, report models.DistributionReport) error {
	_, err := r.collection().InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to insert distribution report: %w", err)
	}
	return nil
}

// ListDistributionReports returns the most recent archived reports, newest first.
func (r *MongoDBRepository) ListDistributionReports(ctx context.Context, limit int) ([]models.DistributionReport, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection().Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution reports: %w", err)
	}
	defer cursor.Close(ctx)

	reports := make([]models.DistributionReport, 0, limit)
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode distribution reports: %w", err)
	}
	return reports, nil
}

// GetDistributionReport loads one archived report.
func (r *MongoDBRepository) GetDistributionReport(ctx context.Context, id string) (models.DistributionReport, error) {
	var report models.DistributionReport
	err := r.collection().FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.DistributionReport{}, ErrReportNotFound
	}
	if err != nil {
		return models.DistributionReport{}, fmt.Errorf("failed to load distribution report %s: %w", id, err)
	}
	return report, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
