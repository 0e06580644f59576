package invoice

import (
	"sort"

	"github.com/shopspring/decimal"
	"invoicer/pkg/models"
)

const (
	// UnknownProjectName labels aggregates whose entries carry no project name.
	UnknownProjectName = "Unknown Project"

	// UnknownCustomerName labels aggregates whose entries carry no customer name.
	UnknownCustomerName = "Unknown Customer"
)

var minutesPerHour = decimal.NewFromInt(60)

// ProjectAggregate sums the time entries of one project. It is derived per
// run and never persisted.
type ProjectAggregate struct {
	ProjectKey   string
	ProjectID    *int64
	ProjectName  string
	CustomerID   *int64
	CustomerName string

	TotalMinutes int

	// RevenueCents is the summed mite revenue in cents. HasRevenue is false
	// when no entry carried a revenue value.
	RevenueCents decimal.Decimal
	HasRevenue   bool

	// Entries are the contributing entries in input order.
	Entries []models.TimeEntry
}

// EntriesCount returns the number of contributing entries.
func (a *ProjectAggregate) EntriesCount() int {
	return len(a.Entries)
}

// TotalHours returns the unrounded hours (minutes / 60).
func (a *ProjectAggregate) TotalHours() decimal.Decimal {
	return decimal.NewFromInt(int64(a.TotalMinutes)).Div(minutesPerHour)
}

// DisplayHours returns the hours rounded to two decimals.
func (a *ProjectAggregate) DisplayHours() float64 {
	return a.TotalHours().Round(2).InexactFloat64()
}

// Aggregate groups entries by project and returns one aggregate per project,
// ordered by descending total time. Ties keep the order in which projects
// first appear.
func Aggregate(entries []models.TimeEntry) []ProjectAggregate {
	index := make(map[string]int)
	aggregates := make([]ProjectAggregate, 0)

	for _, entry := range entries {
		key := entry.ProjectKey()

		i, ok := index[key]
		if !ok {
			i = len(aggregates)
			index[key] = i
			aggregates = append(aggregates, ProjectAggregate{
				ProjectKey:   key,
				ProjectID:    entry.ProjectID,
				ProjectName:  orDefault(entry.ProjectName, UnknownProjectName),
				CustomerID:   entry.CustomerID,
				CustomerName: orDefault(entry.CustomerName, UnknownCustomerName),
				RevenueCents: decimal.Zero,
			})
		}

		agg := &aggregates[i]
		agg.TotalMinutes += entry.Minutes
		if entry.Revenue != nil {
			agg.RevenueCents = agg.RevenueCents.Add(decimal.NewFromFloat(*entry.Revenue))
			agg.HasRevenue = true
		}
		agg.Entries = append(agg.Entries, entry)
	}

	sort.SliceStable(aggregates, func(i, j int) bool {
		return aggregates[i].TotalMinutes > aggregates[j].TotalMinutes
	})

	return aggregates
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
