package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	raven "github.com/getsentry/raven-go"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// A GridFS store keeps document versions in a MongoDB GridFS bucket, one
// GridFS file per version, sharing the logical path as the filename. This is
// the production backend. The caller owns the mongo.Client lifecycle; one
// client should be created per process and shared.
type GridFS struct {
	bucket *mongo.GridFSBucket
	files  *mongo.Collection // the <name>.files metadata collection
}

var _ Store = &GridFS{}

// gridFile mirrors the GridFS files-collection document schema.
type gridFile struct {
	ID         bson.ObjectID `bson:"_id"`
	Filename   string        `bson:"filename"`
	Length     int64         `bson:"length"`
	UploadDate time.Time     `bson:"uploadDate"`
}

// NewGridFS creates a GridFS store over the given database using the named
// bucket. The name is the document collection from the configuration surface,
// for example "ipynb"; GridFS derives its "<name>.files" and "<name>.chunks"
// collections from it.
func NewGridFS(db *mongo.Database, name string) *GridFS {
	return &GridFS{
		bucket: db.GridFSBucket(options.GridFSBucket().SetName(name)),
		files:  db.Collection(name + ".files"),
	}
}

// Exists reports whether path has at least one stored version.
func (g *GridFS) Exists(ctx context.Context, path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	err := g.files.FindOne(ctx, bson.M{"filename": path},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("gridfs exists %s: %w", path, err)
	}
	return true, nil
}

// Put uploads data as a new GridFS file named path. Earlier versions are
// left in place.
func (g *GridFS) Put(ctx context.Context, path string, data []byte) (Version, error) {
	id, err := g.bucket.UploadFromStream(ctx, path, bytes.NewReader(data))
	if err != nil {
		log.Println("GridFS Put:", path, err)
		raven.CaptureError(err, map[string]string{"Path": path})
		return Version{}, fmt.Errorf("gridfs put %s: %w", path, err)
	}
	return Version{
		ID:        id.Hex(),
		Path:      path,
		Size:      int64(len(data)),
		CreatedAt: id.Timestamp().UTC(),
	}, nil
}

// Latest returns the most recently uploaded version of path.
func (g *GridFS) Latest(ctx context.Context, path string) (Version, error) {
	var doc gridFile
	// _id breaks ties between uploads inside the same millisecond
	err := g.files.FindOne(ctx, bson.M{"filename": path},
		options.FindOne().SetSort(bson.D{{Key: "uploadDate", Value: -1}, {Key: "_id", Value: -1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Version{}, ErrNotFound
	}
	if err != nil {
		return Version{}, fmt.Errorf("gridfs latest %s: %w", path, err)
	}
	return Version{
		ID:        doc.ID.Hex(),
		Path:      doc.Filename,
		Size:      doc.Length,
		CreatedAt: doc.UploadDate.UTC(),
	}, nil
}

// Read downloads the bytes of the version with the given id. The id must
// belong to path; reading another path's version is an ErrNoVersion.
func (g *GridFS) Read(ctx context.Context, path string, versionID string) ([]byte, error) {
	oid, err := bson.ObjectIDFromHex(versionID)
	if err != nil {
		return nil, ErrNoVersion
	}
	// Make sure this file id really is a version of path before fetching.
	err = g.files.FindOne(ctx, bson.M{"_id": oid, "filename": path},
		options.FindOne().SetProjection(bson.M{"_id": 1}),
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoVersion
	}
	if err != nil {
		return nil, fmt.Errorf("gridfs read %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := g.bucket.DownloadToStream(ctx, oid, &buf); err != nil {
		log.Println("GridFS Read:", path, versionID, err)
		raven.CaptureError(err, map[string]string{"Path": path, "Version": versionID})
		return nil, fmt.Errorf("gridfs read %s: %w", path, err)
	}
	return buf.Bytes(), nil
}

// ListKeys returns every distinct filename in the bucket.
func (g *GridFS) ListKeys(ctx context.Context) ([]string, error) {
	var names []string
	err := g.files.Distinct(ctx, "filename", bson.D{}).Decode(&names)
	if err != nil {
		log.Println("GridFS ListKeys:", err)
		raven.CaptureError(err, nil)
		return nil, fmt.Errorf("gridfs list keys: %w", err)
	}
	return names, nil
}

// DeleteAll removes every GridFS file named path, chunks included.
func (g *GridFS) DeleteAll(ctx context.Context, path string) error {
	cur, err := g.files.Find(ctx, bson.M{"filename": path},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return fmt.Errorf("gridfs delete %s: %w", path, err)
	}
	var docs []gridFile
	if err := cur.All(ctx, &docs); err != nil {
		return fmt.Errorf("gridfs delete %s: %w", path, err)
	}
	for _, doc := range docs {
		if err := g.bucket.Delete(ctx, doc.ID); err != nil {
			log.Println("GridFS DeleteAll:", path, err)
			raven.CaptureError(err, map[string]string{"Path": path})
			return fmt.Errorf("gridfs delete %s: %w", path, err)
		}
	}
	return nil
}
