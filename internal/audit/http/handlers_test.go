package audithttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skolara/skolara/internal/audit"
	"github.com/skolara/skolara/internal/shared"
	_ "github.com/skolara/skolara/testing"
)

type fakeLedger struct {
	entries map[string]audit.Entry
	page    *audit.Page
	filters audit.Filters
}

func (f *fakeLedger) Append(ctx context.Context, entry audit.Entry) (*audit.Entry, error) {
	return &entry, nil
}

func (f *fakeLedger) GetByID(ctx context.Context, id string) (*audit.Entry, error) {
	if entry, ok := f.entries[id]; ok {
		return &entry, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeLedger) List(ctx context.Context, filters audit.Filters) (*audit.Page, error) {
	f.filters = filters
	if f.page != nil {
		return f.page, nil
	}
	return &audit.Page{Entries: []audit.Entry{}, Page: filters.Page, PageSize: filters.PageSize}, nil
}

func (f *fakeLedger) Update(ctx context.Context, entry audit.Entry) error {
	return shared.ErrImmutableRecord
}

func (f *fakeLedger) Delete(ctx context.Context, id string) error {
	return shared.ErrImmutableRecord
}

func newTestRouter(ledger audit.Ledger) chi.Router {
	r := chi.NewRouter()
	NewHandler(nil, ledger).MountRoutes(r)
	return r
}

func TestListPassesFiltersThrough(t *testing.T) {
	ledger := &fakeLedger{}
	router := newTestRouter(ledger)

	q := url.Values{}
	q.Set("actor", "id-student")
	q.Set("action", audit.ActionLoginFailed)
	q.Set("page", "3")
	q.Set("pageSize", "5")
	q.Set("from", "2026-08-01T00:00:00Z")
	q.Set("to", "2026-08-15T00:00:00Z")

	req := httptest.NewRequest(http.MethodGet, "/admin/audit?"+q.Encode(), nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, "id-student", ledger.filters.Actor)
	assert.Equal(t, audit.ActionLoginFailed, ledger.filters.Action)
	assert.Equal(t, 3, ledger.filters.Page)
	assert.Equal(t, 5, ledger.filters.PageSize)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), ledger.filters.From.UTC())
}

func TestListRejectsBadFilters(t *testing.T) {
	router := newTestRouter(&fakeLedger{})

	cases := []struct {
		name  string
		query string
	}{
		{"page not a number", "page=one"},
		{"page zero", "page=0"},
		{"pageSize negative", "pageSize=-5"},
		{"from not rfc3339", "from=yesterday"},
		{"to before from", "from=2026-08-15T00:00:00Z&to=2026-08-01T00:00:00Z"},
		{"range over ninety days", "from=2026-01-01T00:00:00Z&to=2026-06-01T00:00:00Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/audit?"+tc.query, nil)
			res := httptest.NewRecorder()
			router.ServeHTTP(res, req)
			assert.Equal(t, http.StatusBadRequest, res.Code)
			assert.Contains(t, res.Body.String(), "VALIDATION_ERROR")
		})
	}
}

func TestGetEntry(t *testing.T) {
	actor := "id-teacher"
	ledger := &fakeLedger{entries: map[string]audit.Entry{
		"e-1": {
			ID:           "e-1",
			ActorID:      &actor,
			Action:       audit.ActionLoginSucceeded,
			ResourceType: audit.ResourceTypeIdentity,
			CreatedAt:    time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		},
	}}
	router := newTestRouter(ledger)

	req := httptest.NewRequest(http.MethodGet, "/admin/audit/e-1", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, "e-1", body["id"])
	assert.Equal(t, audit.ActionLoginSucceeded, body["action"])
	assert.Equal(t, "2026-08-30T10:00:00Z", body["createdAt"])
}

func TestGetUnknownEntry(t *testing.T) {
	router := newTestRouter(&fakeLedger{})

	req := httptest.NewRequest(http.MethodGet, "/admin/audit/missing", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Contains(t, res.Body.String(), "NOT_FOUND")
}

// The audit surface is read-only: no mutating verb is routed at all, so a
// write attempt dies at the router before reaching the ledger.
func TestMutatingVerbsNotRouted(t *testing.T) {
	router := newTestRouter(&fakeLedger{})

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		req := httptest.NewRequest(method, "/admin/audit/e-1", nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		assert.Equalf(t, http.StatusMethodNotAllowed, res.Code, "%s should not be routed", method)
	}
}
