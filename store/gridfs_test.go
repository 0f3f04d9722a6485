package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/gridbook/gridbook/store"
	"github.com/gridbook/gridbook/store/storetest"
)

// TestGridFS runs the conformance suite against a real MongoDB. It is
// skipped unless GRIDBOOK_TEST_MONGO_URI is set.
func TestGridFS(t *testing.T) {
	uri := os.Getenv("GRIDBOOK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("GRIDBOOK_TEST_MONGO_URI not set; skipping Mongo integration test")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx, nil))

	db := client.Database("gridbook_test")
	for _, c := range []string{"ipynb.files", "ipynb.chunks"} {
		_ = db.Collection(c).Drop(ctx)
	}
	t.Cleanup(func() {
		for _, c := range []string{"ipynb.files", "ipynb.chunks"} {
			_ = db.Collection(c).Drop(ctx)
		}
		_ = client.Disconnect(ctx)
	})

	storetest.Run(t, store.NewGridFS(db, "ipynb"))
}
