package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-api/pkg/config"
	"github.com/angelmondragon/storefront-api/pkg/db"
	"github.com/angelmondragon/storefront-api/pkg/db/models"
	"github.com/angelmondragon/storefront-api/pkg/migrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type fakeQuerier struct {
	payload string
	err     error
	params  map[string]any
}

func (f *fakeQuerier) Query(_ context.Context, _ string, params map[string]any, dest any) error {
	f.params = params
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.payload), dest)
}

type fakeStore struct {
	upserted    []models.CatalogProduct
	keep        []string
	deactivated bool
	upsertErr   error
}

func (f *fakeStore) ReleaseSKUs(context.Context, []models.CatalogProduct) (int64, error) {
	return 0, nil
}

func (f *fakeStore) Upsert(_ context.Context, products []models.CatalogProduct) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, products...)
	return nil
}

func (f *fakeStore) DeactivateMissing(_ context.Context, keep []string) (int64, error) {
	f.deactivated = true
	f.keep = keep
	return 2, nil
}

func TestSyncConvertsDocuments(t *testing.T) {
	source := &fakeQuerier{payload: `[
		{"_id":"p1","sku":"MUG-1","title":" Mug ","tags":["Kitchen","kitchen","gift"],"price":"12.345","weight":14,"dimensions":{"l":5,"w":4,"h":0},"active":true},
		{"_id":"p2","sku":"TEE-1","title":"Tee","price":20,"active":false}
	]`}
	repo := &fakeStore{}
	syncer := NewSyncer(source, repo, nil)
	syncer.now = func() time.Time { return time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC) }

	result, err := syncer.Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "product", source.params["type"])
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Upserted)
	assert.EqualValues(t, 2, result.Deactivated)
	assert.NoError(t, result.Invalid)
	assert.Equal(t, []string{"p1", "p2"}, repo.keep)

	require.Len(t, repo.upserted, 2)
	mug := repo.upserted[0]
	assert.Equal(t, "Mug", mug.Title)
	assert.EqualValues(t, 1235, mug.PriceCents)
	assert.Equal(t, "kitchen,gift", mug.Tags)
	require.NotNil(t, mug.WeightOz)
	assert.Equal(t, 14.0, *mug.WeightOz)
	require.NotNil(t, mug.LengthIn)
	assert.Nil(t, mug.HeightIn)
	assert.True(t, mug.Active)

	tee := repo.upserted[1]
	assert.EqualValues(t, 2000, tee.PriceCents)
	assert.False(t, tee.Active)
	assert.Nil(t, tee.WeightOz)
}

func TestSyncSkipsInvalidDocumentsAndKeepsOthersActive(t *testing.T) {
	source := &fakeQuerier{payload: `[
		{"_id":"p1","sku":"MUG-1","title":"Mug","price":10,"active":true},
		{"_id":"p2","title":"No SKU","active":true},
		{"_id":"p3","sku":"NEG-1","title":"Negative","price":-1,"active":true}
	]`}
	repo := &fakeStore{}

	result, err := NewSyncer(source, repo, nil).Sync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Upserted)
	assert.Len(t, multierr.Errors(result.Invalid), 2)
	assert.False(t, repo.deactivated, "a partially invalid batch must not deactivate products")
}

func TestSyncPropagatesSourceAndStoreErrors(t *testing.T) {
	_, err := NewSyncer(&fakeQuerier{err: errors.New("boom")}, &fakeStore{}, nil).Sync(context.Background())
	require.Error(t, err)

	_, err = NewSyncer(&fakeQuerier{payload: `[]`}, &fakeStore{upsertErr: errors.New("locked")}, nil).Sync(context.Background())
	require.Error(t, err)

	var nilSyncer *Syncer
	_, err = nilSyncer.Sync(context.Background())
	require.Error(t, err)
}

func TestSyncRejectsDuplicateSKUsInBatch(t *testing.T) {
	source := &fakeQuerier{payload: `[
		{"_id":"p1","sku":"MUG-1","title":"Mug","active":true},
		{"_id":"p2","sku":"MUG-1","title":"Mug copy","active":true}
	]`}
	repo := &fakeStore{}

	result, err := NewSyncer(source, repo, nil).Sync(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.upserted, 1)
	assert.Equal(t, "p1", repo.upserted[0].ID)
	require.Error(t, result.Invalid)
	assert.Contains(t, result.Invalid.Error(), "sku MUG-1 already used by p1")
	assert.False(t, repo.deactivated)
}

func newSyncClient(t *testing.T) *db.Client {
	t.Helper()
	ctx := context.Background()
	client, err := db.New(ctx, config.DBConfig{Driver: config.DBDriverSQLite, DSN: "file::memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	sqlDB, err := client.DB().DB()
	require.NoError(t, err)
	require.NoError(t, migrate.Up(ctx, sqlDB, client.Dialect()))
	return client
}

func TestSyncMovesSKUToNewDocument(t *testing.T) {
	ctx := context.Background()
	client := newSyncClient(t)
	repo := NewRepository(client.DB())
	require.NoError(t, repo.Upsert(ctx, []models.CatalogProduct{testProduct("p-old", "MUG-1", "Mug")}))

	source := &fakeQuerier{payload: `[{"_id":"p-new","sku":"MUG-1","title":"Mug v2","price":12,"active":true}]`}
	syncer := NewSyncer(source, repo, nil, WithTransactions(client))

	for run := 0; run < 2; run++ {
		result, err := syncer.Sync(ctx)
		require.NoError(t, err, "run %d", run)
		assert.Equal(t, 1, result.Upserted)
	}

	found, err := repo.FindByKeys(ctx, []string{"MUG-1", "p-old"})
	require.NoError(t, err)
	require.Contains(t, found, "MUG-1")
	assert.Equal(t, "p-new", found["MUG-1"].ID)
	assert.NotContains(t, found, "p-old")
}

type failingDeactivateStore struct{ *Repository }

func (f failingDeactivateStore) DeactivateMissing(context.Context, []string) (int64, error) {
	return 0, errors.New("disk full")
}

func TestSyncRollsBackOnPartialFailure(t *testing.T) {
	ctx := context.Background()
	client := newSyncClient(t)
	repo := NewRepository(client.DB())
	require.NoError(t, repo.Upsert(ctx, []models.CatalogProduct{testProduct("p1", "MUG-1", "Mug")}))

	source := &fakeQuerier{payload: `[{"_id":"p1","sku":"MUG-1","title":"Renamed","active":true}]`}
	syncer := NewSyncer(source, repo, nil)
	syncer.atomic = func(ctx context.Context, fn func(store) error) error {
		return client.WithTx(ctx, func(tx *gorm.DB) error {
			return fn(failingDeactivateStore{NewRepository(tx)})
		})
	}

	_, err := syncer.Sync(ctx)
	require.Error(t, err)

	rows, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Mug", rows[0].Title, "upsert must roll back with the failed deactivation")
}
