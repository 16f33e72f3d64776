package sink

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/law-makers/dircrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

const mongoBatchSize = 1000

// Mongo upserts records by ID and stores one summary document per run
type Mongo struct {
	client  *mongo.Client
	records *mongo.Collection
	runs    *mongo.Collection
}

// NewMongo connects to uri and pings the server
func NewMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	db := client.Database(database)
	return &Mongo{
		client:  client,
		records: db.Collection(collection),
		runs:    db.Collection(collection + "_runs"),
	}, nil
}

func (m *Mongo) Name() string { return FormatMongo }

func (m *Mongo) Write(ctx context.Context, ds *models.Dataset) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	upserted, modified := int64(0), int64(0)
	for _, batch := range recordBatches(ds.Records, mongoBatchSize) {
		res, err := m.records.BulkWrite(ctx, upsertModels(batch), options.BulkWrite().SetOrdered(false))
		if err != nil {
			return fmt.Errorf("mongodb upsert: %w", err)
		}
		upserted += res.UpsertedCount
		modified += res.ModifiedCount
	}

	_, err := m.runs.ReplaceOne(ctx, bson.M{"_id": ds.RunID}, runDocument(ds), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb run summary: %w", err)
	}

	log.Debug().
		Int64("upserted", upserted).
		Int64("modified", modified).
		Msg("Records stored in mongodb")
	return nil
}

// Close disconnects the client
func (m *Mongo) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func recordBatches(records []models.Record, size int) [][]models.Record {
	var out [][]models.Record
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		out = append(out, records[start:end])
	}
	return out
}

func upsertModels(records []models.Record) []mongo.WriteModel {
	out := make([]mongo.WriteModel, len(records))
	for i, r := range records {
		out[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": r.ID}).
			SetReplacement(r).
			SetUpsert(true)
	}
	return out
}

func runDocument(ds *models.Dataset) bson.M {
	stats := make([]bson.M, len(ds.Stats))
	for i, s := range ds.Stats {
		stats[i] = bson.M{
			"partition":    s.Partition,
			"found":        s.Found,
			"new":          s.New,
			"pages_total":  s.PagesTotal,
			"pages_failed": s.PagesFailed,
			"failed":       s.Failed,
		}
	}
	return bson.M{
		"_id":         ds.RunID,
		"started_at":  ds.StartedAt,
		"finished_at": ds.FinishedAt,
		"interrupted": ds.Interrupted,
		"records":     len(ds.Records),
		"stats":       stats,
	}
}
