package checkpoint

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoRecord is the BSON document schema for checkpoint records.
type mongoRecord struct {
	Path         string    `bson:"path"`
	Seq          int       `bson:"cp"`
	VersionID    string    `bson:"version_id"`
	LastModified time.Time `bson:"lastModified"`
}

// Mongo implements Store backed by a MongoDB collection. The caller owns
// the mongo.Client lifecycle and should share one client with the GridFS
// store, since both must reference the same logical database.
type Mongo struct {
	Collection *mongo.Collection
}

var _ Store = &Mongo{}

// NewMongo creates a Mongo checkpoint store from a *mongo.Collection.
func NewMongo(collection *mongo.Collection) *Mongo {
	return &Mongo{Collection: collection}
}

// Create counts the existing records for path and upserts a record with the
// next sequence number. The upsert is keyed by the full record identity, so
// an identical retry does not add a second record.
func (s *Mongo) Create(ctx context.Context, path string, versionID string) (Record, error) {
	count, err := s.Collection.CountDocuments(ctx, bson.M{"path": path})
	if err != nil {
		return Record{}, fmt.Errorf("count checkpoints %s: %w", path, err)
	}
	now := time.Now().UTC()
	filter := bson.M{"path": path, "cp": int(count), "version_id": versionID}
	update := bson.M{"$set": bson.M{"lastModified": now}}
	_, err = s.Collection.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return Record{}, fmt.Errorf("create checkpoint %s: %w", path, err)
	}
	return Record{Path: path, Seq: int(count), CreatedAt: now, VersionID: versionID}, nil
}

// List returns the records for path in insertion order.
func (s *Mongo) List(ctx context.Context, path string) ([]Record, error) {
	cur, err := s.Collection.Find(ctx, bson.M{"path": path})
	if err != nil {
		return nil, fmt.Errorf("list checkpoints %s: %w", path, err)
	}
	var docs []mongoRecord
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list checkpoints %s: %w", path, err)
	}
	records := make([]Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, Record{
			Path:      d.Path,
			Seq:       d.Seq,
			CreatedAt: d.LastModified,
			VersionID: d.VersionID,
		})
	}
	return records, nil
}

// Retarget bulk-updates every record at oldPath to newPath.
func (s *Mongo) Retarget(ctx context.Context, oldPath, newPath string) error {
	_, err := s.Collection.UpdateMany(ctx,
		bson.M{"path": oldPath},
		bson.M{"$set": bson.M{"path": newPath}},
	)
	if err != nil {
		return fmt.Errorf("retarget checkpoints %s -> %s: %w", oldPath, newPath, err)
	}
	return nil
}
