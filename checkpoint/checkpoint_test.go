package checkpoint_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/gridbook/gridbook/checkpoint"
)

func TestMemory(t *testing.T) {
	runStoreTests(t, func(t *testing.T) checkpoint.Store {
		return checkpoint.NewMemory()
	})
}

func TestMongo(t *testing.T) {
	runStoreTests(t, func(t *testing.T) checkpoint.Store {
		return newTestMongoStore(t)
	})
}

func newTestMongoStore(t *testing.T) *checkpoint.Mongo {
	t.Helper()

	uri := os.Getenv("GRIDBOOK_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("GRIDBOOK_TEST_MONGO_URI not set; skipping Mongo integration test")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx, nil))

	coll := client.Database("gridbook_test").Collection("ipynb_checkpoints_" + t.Name())
	_ = coll.Drop(ctx)
	t.Cleanup(func() {
		_ = coll.Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	return checkpoint.NewMongo(coll)
}

func runStoreTests(t *testing.T, open func(t *testing.T) checkpoint.Store) {
	ctx := context.Background()

	t.Run("SequenceCountsFromZero", func(t *testing.T) {
		s := open(t)
		r0, err := s.Create(ctx, "a.ipynb", "v-one")
		require.NoError(t, err)
		assert.Equal(t, 0, r0.Seq)

		r1, err := s.Create(ctx, "a.ipynb", "v-two")
		require.NoError(t, err)
		assert.Equal(t, 1, r1.Seq)

		// another path counts independently
		other, err := s.Create(ctx, "b.ipynb", "v-three")
		require.NoError(t, err)
		assert.Equal(t, 0, other.Seq)
	})

	t.Run("RepeatedCreateAdvancesSequence", func(t *testing.T) {
		s := open(t)
		_, err := s.Create(ctx, "c.ipynb", "v-one")
		require.NoError(t, err)

		// checkpointing the same version again is a new record, not a
		// refresh: the upsert identity includes the advanced sequence
		r, err := s.Create(ctx, "c.ipynb", "v-one")
		require.NoError(t, err)
		assert.Equal(t, 1, r.Seq)

		records, err := s.List(ctx, "c.ipynb")
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("ListUnknownPath", func(t *testing.T) {
		s := open(t)
		records, err := s.List(ctx, "nothing.ipynb")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("Retarget", func(t *testing.T) {
		s := open(t)
		r0, err := s.Create(ctx, "old.ipynb", "v-one")
		require.NoError(t, err)
		r1, err := s.Create(ctx, "old.ipynb", "v-two")
		require.NoError(t, err)

		require.NoError(t, s.Retarget(ctx, "old.ipynb", "new.ipynb"))

		records, err := s.List(ctx, "old.ipynb")
		require.NoError(t, err)
		assert.Empty(t, records)

		records, err = s.List(ctx, "new.ipynb")
		require.NoError(t, err)
		require.Len(t, records, 2)
		seqs := []int{records[0].Seq, records[1].Seq}
		assert.ElementsMatch(t, []int{r0.Seq, r1.Seq}, seqs)
		for _, r := range records {
			assert.Equal(t, "new.ipynb", r.Path)
		}
	})
}
