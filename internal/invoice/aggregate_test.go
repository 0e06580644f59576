package invoice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"invoicer/internal/invoice"
	"invoicer/pkg/models"
)

func id(v int64) *int64 { return &v }

func cents(v float64) *float64 { return &v }

func entry(entryID int64, projectID *int64, project, customer string, minutes int) models.TimeEntry {
	return models.TimeEntry{
		ID:           entryID,
		Minutes:      minutes,
		DateAt:       "2025-06-02",
		ProjectID:    projectID,
		ProjectName:  project,
		CustomerName: customer,
		Billable:     true,
	}
}

func TestAggregateConservesMinutesAndEntries(t *testing.T) {
	entries := []models.TimeEntry{
		entry(1, id(10), "Alpha", "ACME", 60),
		entry(2, id(20), "Beta", "Globex", 45),
		entry(3, id(10), "Alpha", "ACME", 30),
		entry(4, nil, "", "", 15),
		entry(5, id(20), "Beta", "Globex", 120),
		entry(6, nil, "", "", 5),
	}

	aggregates := invoice.Aggregate(entries)

	totalMinutes, totalEntries := 0, 0
	for _, agg := range aggregates {
		totalMinutes += agg.TotalMinutes
		totalEntries += agg.EntriesCount()
	}

	inputMinutes := 0
	for _, e := range entries {
		inputMinutes += e.Minutes
	}

	assert.Equal(t, inputMinutes, totalMinutes)
	assert.Equal(t, len(entries), totalEntries)
	assert.Len(t, aggregates, 3)
}

func TestAggregateOrdering(t *testing.T) {
	entries := []models.TimeEntry{
		entry(1, id(1), "Small", "C", 30),
		entry(2, id(2), "TieA", "C", 60),
		entry(3, id(3), "Big", "C", 240),
		entry(4, id(4), "TieB", "C", 60),
	}

	aggregates := invoice.Aggregate(entries)
	require.Len(t, aggregates, 4)

	names := make([]string, 0, len(aggregates))
	for _, agg := range aggregates {
		names = append(names, agg.ProjectName)
	}
	assert.Equal(t, []string{"Big", "TieA", "TieB", "Small"}, names)
}

func TestAggregateUnknownProject(t *testing.T) {
	aggregates := invoice.Aggregate([]models.TimeEntry{
		entry(1, nil, "", "", 30),
		entry(2, nil, "", "", 30),
	})

	require.Len(t, aggregates, 1)
	agg := aggregates[0]
	assert.Equal(t, "Unknown", agg.ProjectKey)
	assert.Equal(t, invoice.UnknownProjectName, agg.ProjectName)
	assert.Equal(t, invoice.UnknownCustomerName, agg.CustomerName)
	assert.Equal(t, 1.0, agg.DisplayHours())
}

func TestAggregateRevenue(t *testing.T) {
	withRevenue := entry(1, id(7), "Alpha", "ACME", 90)
	withRevenue.Revenue = cents(28500)
	alsoRevenue := entry(2, id(7), "Alpha", "ACME", 30)
	alsoRevenue.Revenue = cents(9500.5)
	noRevenue := entry(3, id(8), "Beta", "ACME", 30)

	aggregates := invoice.Aggregate([]models.TimeEntry{withRevenue, alsoRevenue, noRevenue})
	require.Len(t, aggregates, 2)

	assert.True(t, aggregates[0].HasRevenue)
	assert.Equal(t, "38000.5", aggregates[0].RevenueCents.String())
	assert.False(t, aggregates[1].HasRevenue)
	assert.True(t, aggregates[1].RevenueCents.IsZero())
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, invoice.Aggregate(nil))
}
