package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"storefront/internal/models"
)

func TestSalesStatusFilterCountsOnlyRealizedRevenue(t *testing.T) {
	filter := salesStatusFilter()

	statuses, ok := filter["status"].(bson.M)["$in"].([]string)
	require.True(t, ok)

	assert.ElementsMatch(t, []string{
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
	}, statuses)
	assert.NotContains(t, statuses, models.OrderStatusUnprocessed)
	assert.NotContains(t, statuses, models.OrderStatusCancelled)
}

func pipelineStage(t *testing.T, stages []bson.D, name string) bson.M {
	t.Helper()
	for _, stage := range stages {
		for _, e := range stage {
			if e.Key == name {
				if m, ok := e.Value.(bson.M); ok {
					return m
				}
			}
		}
	}
	t.Fatalf("stage %s not found", name)
	return nil
}

func TestTimeBucketPipelineDailyGroupsByDay(t *testing.T) {
	group := pipelineStage(t, timeBucketPipeline(true), "$group")
	groupID := group["_id"].(bson.M)

	assert.Contains(t, groupID, "year")
	assert.Contains(t, groupID, "month")
	assert.Contains(t, groupID, "day")
}

func TestTimeBucketPipelineMonthlyOmitsDay(t *testing.T) {
	group := pipelineStage(t, timeBucketPipeline(false), "$group")
	groupID := group["_id"].(bson.M)

	assert.Contains(t, groupID, "year")
	assert.Contains(t, groupID, "month")
	assert.NotContains(t, groupID, "day")
}

func TestTopProductsPipelineLimitsToTen(t *testing.T) {
	var limit interface{}
	for _, stage := range topProductsPipeline() {
		for _, e := range stage {
			if e.Key == "$limit" {
				limit = e.Value
			}
		}
	}
	assert.Equal(t, 10, limit)
}

func TestCategorySalesPipelineMultipliesQuantityByPrice(t *testing.T) {
	group := pipelineStage(t, categorySalesPipeline(), "$group")
	total := group["totalSales"].(bson.M)["$sum"].(bson.M)

	factors, ok := total["$multiply"].([]interface{})
	require.True(t, ok)
	assert.ElementsMatch(t, []interface{}{"$items.quantity", "$items.price"}, factors)
}
