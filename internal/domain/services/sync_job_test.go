package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/athebyme/gomarket-platform/catalog-sync/internal/metrics"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/utils"
	contract "github.com/athebyme/gomarket-platform/catalog-sync/pkg/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "product_sync_queue"

func newTestJob(t *testing.T, catalog *fakeCatalog, publisher *fakePublisher) *SyncJob {
	return NewSyncJob(NewSnapshotBuilder(catalog), publisher, testTopic, testLogger(t))
}

func TestSyncJob_PublishesKeyedDocument(t *testing.T) {
	publisher := &fakePublisher{}
	job := newTestJob(t, newFakeCatalog(phoneProduct(1)), publisher)

	require.NoError(t, job.Run(context.Background(), 1, "upsert"))

	require.Equal(t, 1, publisher.count())
	msg := publisher.messages[0]
	assert.Equal(t, testTopic, msg.topic)
	assert.Equal(t, "1", msg.key)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &doc))
	assert.Equal(t, float64(1), doc["productId"])
	assert.Equal(t, float64(10), doc["itemId"])
	assert.Equal(t, "upsert", doc["action"])
	assert.Equal(t, "es-1", doc["indexRef"])

	data := doc["data"].(map[string]any)
	assert.Equal(t, "Phone X", data["name"])
	assert.Equal(t, "Electronics", data["sub_category"])
	assert.Equal(t, 199.9, data["price"])
	assert.Equal(t, float64(120), data["total_rating_count"])
	suggestion := data["suggestion"].(map[string]any)
	assert.Equal(t, []any{"phone", "smart phone"}, suggestion["input"])
	assert.Equal(t, float64(1), suggestion["weight"])
}

func TestSyncJob_DeleteOfMissingProductPublishesNullData(t *testing.T) {
	publisher := &fakePublisher{}
	job := newTestJob(t, newFakeCatalog(), publisher)

	require.NoError(t, job.Run(context.Background(), 5, contract.ActionDelete))

	require.Equal(t, 1, publisher.count())
	assert.JSONEq(t, `{"productId":5,"itemId":null,"action":"delete","indexRef":"","data":null}`,
		string(publisher.messages[0].payload))
}

func TestSyncJob_IsIdempotent(t *testing.T) {
	publisher := &fakePublisher{}
	catalog := newFakeCatalog(phoneProduct(1))
	job := newTestJob(t, catalog, publisher)

	require.NoError(t, job.Run(context.Background(), 1, "upsert"))
	require.NoError(t, job.Run(context.Background(), 1, "upsert"))

	require.Equal(t, 2, publisher.count())
	assert.Equal(t, publisher.messages[0].payload, publisher.messages[1].payload)
	assert.Equal(t, "es-1", catalog.products[1].IndexRef)
}

func TestSyncJob_BuildFailuresDoNotPublish(t *testing.T) {
	noVariant := phoneProduct(2)
	noVariant.DefaultVariant = nil

	tests := []struct {
		name    string
		id      int64
		action  string
		wantErr error
	}{
		{name: "missing product", id: 404, action: "upsert", wantErr: utils.ErrProductNotFound},
		{name: "no default variant", id: 2, action: "upsert", wantErr: utils.ErrNoDefaultVariant},
		{name: "non positive id", id: 0, action: "upsert", wantErr: utils.ErrInvalidProductId},
		{name: "blank action", id: 2, action: " ", wantErr: utils.ErrInvalidAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publisher := &fakePublisher{}
			job := newTestJob(t, newFakeCatalog(noVariant), publisher)

			err := job.Run(context.Background(), tt.id, tt.action)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, publisher.count())
		})
	}
}

func TestSyncJob_PublishesCatalogValuesAsIs(t *testing.T) {
	for _, action := range []string{"upsert", contract.ActionDelete} {
		t.Run(action, func(t *testing.T) {
			p := phoneProduct(1)
			p.Name = ""
			p.DefaultVariant.Price = decimal.RequireFromString("-1")
			publisher := &fakePublisher{}

			require.NoError(t, newTestJob(t, newFakeCatalog(p), publisher).Run(context.Background(), 1, action))

			require.Equal(t, 1, publisher.count())
			var doc contract.SyncMessage
			require.NoError(t, json.Unmarshal(publisher.messages[0].payload, &doc))
			assert.Equal(t, action, doc.Action)
			require.NotNil(t, doc.Data)
			assert.Empty(t, doc.Data.Name)
			assert.Equal(t, -1.0, doc.Data.Price)
		})
	}
}

type builderFunc func(ctx context.Context, productID int64, action string) (*contract.SyncMessage, error)

func (f builderFunc) Build(ctx context.Context, productID int64, action string) (*contract.SyncMessage, error) {
	return f(ctx, productID, action)
}

func TestSyncJob_BrokenSuggestionIsSerializationError(t *testing.T) {
	builder := builderFunc(func(_ context.Context, productID int64, action string) (*contract.SyncMessage, error) {
		return &contract.SyncMessage{
			ProductID: productID,
			Action:    action,
			Data:      &contract.SyncData{Name: "Phone X"},
		}, nil
	})
	publisher := &fakePublisher{}

	err := NewSyncJob(builder, publisher, testTopic, testLogger(t)).Run(context.Background(), 1, "upsert")

	assert.ErrorIs(t, err, utils.ErrSerialization)
	assert.Zero(t, publisher.count())
}

func TestSyncJob_PublishFailure(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker unavailable")}

	err := newTestJob(t, newFakeCatalog(phoneProduct(1)), publisher).Run(context.Background(), 1, "upsert")

	assert.ErrorIs(t, err, utils.ErrPublishFailure)
	assert.Contains(t, err.Error(), "broker unavailable")
}

func TestSyncJob_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	publisher := &fakePublisher{}

	err := newTestJob(t, newFakeCatalog(phoneProduct(1)), publisher).Run(ctx, 1, "upsert")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, publisher.count())
}

func TestSyncJob_Prepare(t *testing.T) {
	publisher := &fakePublisher{}
	payload, err := newTestJob(t, newFakeCatalog(phoneProduct(1)), publisher).Prepare(context.Background(), 1, "upsert")

	require.NoError(t, err)
	assert.Contains(t, string(payload), `"productId":1`)
	assert.Zero(t, publisher.count())
}

func TestSyncJob_UnknownActionUsesBoundedLabel(t *testing.T) {
	counter := metrics.SyncMessages.WithLabelValues(metrics.ActionOther, metrics.StatusSuccess)
	before := testutil.ToFloat64(counter)
	publisher := &fakePublisher{}
	job := newTestJob(t, newFakeCatalog(phoneProduct(1)), publisher)

	require.NoError(t, job.Run(context.Background(), 1, "reindex-batch-42"))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	var doc contract.SyncMessage
	require.NoError(t, json.Unmarshal(publisher.messages[0].payload, &doc))
	assert.Equal(t, "reindex-batch-42", doc.Action)
}
