package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBulkSyncOutcome_Summarize(t *testing.T) {
	t.Run("empty catalog", func(t *testing.T) {
		o := NewBulkSyncOutcome(0)
		o.Summarize()

		assert.Equal(t, "No products found to sync", o.Message)
		assert.Empty(t, o.FailedProductIDs)
		assert.NotNil(t, o.FailedProductIDs)
	})

	t.Run("completed run", func(t *testing.T) {
		o := NewBulkSyncOutcome(5)
		o.SuccessCount = 3
		o.FailedCount = 2
		o.Summarize()

		assert.Equal(t, "Sync completed: 3 succeeded, 2 failed out of 5 total products", o.Message)
	})

	t.Run("interrupted run", func(t *testing.T) {
		o := NewBulkSyncOutcome(10)
		o.SuccessCount = 4
		o.FailedCount = 1
		o.SkippedCount = 5
		o.Summarize()

		assert.Equal(t, "Sync interrupted: 4 succeeded, 1 failed, 5 not attempted out of 10 total products", o.Message)
	})
}

func TestProduct_IsIndexed(t *testing.T) {
	var nilProduct *Product
	assert.False(t, nilProduct.IsIndexed())
	assert.False(t, (&Product{ID: 1}).IsIndexed())
	assert.True(t, (&Product{ID: 1, IndexRef: "1"}).IsIndexed())
}
