package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockfolio/backend/internal/domain"
	"github.com/stockfolio/backend/internal/storage"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(Config{BaseURL: srv.URL, APIKey: "test-key", Timeout: 2 * time.Second}, zerolog.Nop())
}

func TestSelect_FiltersAndHeaders(t *testing.T) {
	var gotPath, gotFilter, gotOrder, gotKey string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFilter = r.URL.Query().Get("portfolio_id")
		gotOrder = r.URL.Query().Get("order")
		gotKey = r.Header.Get("apikey")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"portfolio_id":1,"user_id":"u1"}]`))
	})

	var rows []map[string]interface{}
	err := client.Select(context.Background(), "portfolios",
		storage.Filter{"portfolio_id": "1"}, &rows, storage.WithOrder("created_at.asc"))
	require.NoError(t, err)

	assert.Equal(t, "/rest/v1/portfolios", gotPath)
	assert.Equal(t, "eq.1", gotFilter)
	assert.Equal(t, "created_at.asc", gotOrder)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0]["user_id"])
}

func TestInsert_ReturnsRepresentation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"portfolio_id":7,"user_id":"u1","version":1}]`))
	})

	var created []domain.Portfolio
	err := client.Insert(context.Background(), "portfolios", map[string]interface{}{"user_id": "u1"}, &created)
	require.NoError(t, err)

	require.Len(t, created, 1)
	assert.Equal(t, int64(7), created[0].ID)
}

func TestUpdate_ReportsAffectedRows(t *testing.T) {
	conditional := true

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.3", r.URL.Query().Get("version"))

		w.Header().Set("Content-Type", "application/json")
		if conditional {
			// Version matched: one row patched
			_, _ = w.Write([]byte(`[{"portfolio_id":1,"version":4}]`))
		} else {
			// Version did not match: empty result, no error
			_, _ = w.Write([]byte(`[]`))
		}
	})

	filter := storage.Filter{"portfolio_id": "1", "version": "3"}
	fields := map[string]interface{}{"cash_balance": 500}

	affected, err := client.Update(context.Background(), "portfolios", filter, fields)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	conditional = false
	affected, err = client.Update(context.Background(), "portfolios", filter, fields)
	require.NoError(t, err)
	assert.Equal(t, 0, affected, "a lost version race must report zero rows, not an error")
}

func TestDelete(t *testing.T) {
	var gotMethod, gotSymbol string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotSymbol = r.URL.Query().Get("stock_symbol")
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.Delete(context.Background(), "watchlist_stocks",
		storage.Filter{"watchlist_id": "1", "stock_symbol": "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "eq.AAPL", gotSymbol)
}

func TestSelect_ServerErrorIsCollaborator(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	})

	var rows []map[string]interface{}
	err := client.Select(context.Background(), "portfolios", nil, &rows)
	require.Error(t, err)
	assert.Equal(t, domain.KindCollaborator, domain.KindOf(err))
}

func TestAuthenticate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body["password"] != "pw" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","user":{"id":"uid-1","email":"a@b.c"}}`))
	})

	user, err := client.Authenticate(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", user.ID)
	assert.Equal(t, "a@b.c", user.Email)

	_, err = client.Authenticate(context.Background(), "a@b.c", "wrong")
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}
