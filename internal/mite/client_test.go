package mite_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"invoicer/internal/mite"
	"invoicer/pkg/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *mite.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := mite.NewClient(mite.Config{
		Account: "acme",
		APIKey:  "secret",
		BaseURL: server.URL,
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := mite.NewClient(mite.Config{Account: "acme"})
	assert.ErrorIs(t, err, mite.ErrMissingCredentials)
}

func TestTimeEntries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_entries.json", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-MiteApiKey"))
		assert.Equal(t, "Mite API Client 1.0", r.Header.Get("User-Agent"))

		q := r.URL.Query()
		assert.Equal(t, "2025-06-01", q.Get("from"))
		assert.Equal(t, "2025-06-30", q.Get("to"))
		assert.Equal(t, "4711", q.Get("project_id"))
		assert.Equal(t, "true", q.Get("billable"))
		assert.Equal(t, "false", q.Get("locked"))

		_, _ = io.WriteString(w, `[
			{"time_entry": {"id": 1, "minutes": 90, "date_at": "2025-06-02", "project_id": 4711, "project_name": "BE24-2001 - Einführung", "revenue": 28500.0}},
			{"time-entry": {"id": 2, "minutes": 30, "date_at": "2025-06-03", "locked": true}},
			{"id": 3, "minutes": 15, "date_at": "2025-06-04"}
		]`)
	})

	billable, locked := true, false
	entries, err := client.TimeEntries(context.Background(), services.EntryFilter{
		From:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		To:        time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		ProjectID: "4711",
		Billable:  &billable,
		Locked:    &locked,
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, int64(1), entries[0].ID)
	assert.Equal(t, 90, entries[0].Minutes)
	assert.Equal(t, "4711", entries[0].ProjectKey())
	require.NotNil(t, entries[0].Revenue)
	assert.Equal(t, 28500.0, *entries[0].Revenue)
	assert.True(t, entries[1].Locked)
	assert.Equal(t, "Unknown", entries[2].ProjectKey())
}

func TestLockTimeEntryAcceptsEmptyBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/time_entries/42.json", r.URL.Path)

		var body map[string]map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body["time-entry"]["locked"])

		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, client.LockTimeEntry(context.Background(), 42))
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, mite.ErrUnauthorized},
		{http.StatusForbidden, mite.ErrForbidden},
		{http.StatusNotFound, mite.ErrNotFound},
		{http.StatusTooManyRequests, mite.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			err := client.Ping(context.Background())
			assert.ErrorIs(t, err, tt.want)

			var apiErr *mite.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}

	t.Run("other errors keep the body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "boom")
		})

		err := client.Ping(context.Background())
		var apiErr *mite.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "boom", apiErr.Body)
		assert.Nil(t, apiErr.Unwrap())
	})
}

func TestProjects(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/projects.json":
			_, _ = io.WriteString(w, `[{"project": {"id": 7, "name": "Alpha", "customer_name": "ACME"}}]`)
		case "/projects/archived.json":
			_, _ = io.WriteString(w, `[{"project": {"id": 8, "name": "Old", "archived": true}}]`)
		default:
			http.NotFound(w, r)
		}
	})

	active, err := client.Projects(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Alpha", active[0].Name)
	assert.Equal(t, "ACME", active[0].CustomerName)

	archived, err := client.Projects(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.True(t, archived[0].Archived)
}
