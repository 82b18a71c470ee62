package ledger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candor/internal/domain"
)

// fakeGateway implements the gateway's wire contract over a map.
type fakeGateway struct {
	records map[string]domain.IntegrityRecord
	token   string
}

func (g *fakeGateway) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/reports", func(w http.ResponseWriter, r *http.Request) {
		if !g.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req struct {
			ContentHash string `json:"contentHash"`
			Status      string `json:"status"`
			Reporter    string `json:"reporter"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, ok := g.records[req.ContentHash]; ok {
			w.WriteHeader(http.StatusConflict)
			return
		}
		g.records[req.ContentHash] = domain.IntegrityRecord{
			ContentHash: req.ContentHash,
			Reporter:    req.Reporter,
			Timestamp:   time.Now().UTC(),
			Status:      req.Status,
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"txHash": "0xfeed"})
	})
	mux.HandleFunc("GET /v1/reports/{hash}", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := g.records[r.PathValue("hash")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("PUT /v1/reports/{hash}/status", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := g.records[r.PathValue("hash")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Status string `json:"status"`
			Caller string `json:"caller"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Caller != rec.Reporter {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		rec.Status = req.Status
		g.records[rec.ContentHash] = rec
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /v1/addresses/{addr}/reports", func(w http.ResponseWriter, r *http.Request) {
		var hashes []string
		for _, rec := range g.records {
			if rec.Reporter == r.PathValue("addr") {
				hashes = append(hashes, rec.ContentHash)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string][]string{"contentHashes": hashes})
	})
	return mux
}

func (g *fakeGateway) authorized(r *http.Request) bool {
	if g.token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+g.token
}

func newTestClient(t *testing.T) (*Client, *fakeGateway) {
	t.Helper()
	gw := &fakeGateway{records: make(map[string]domain.IntegrityRecord), token: "sekrit"}
	ts := httptest.NewServer(gw.handler())
	t.Cleanup(ts.Close)
	return New(ts.URL, "sekrit"), gw
}

func TestAnchorAndGetProof(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := t.Context()

	tx, err := c.Anchor(ctx, "hash-1", "submitted", "0xreporter")
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", tx)

	rec, err := c.GetProof(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "0xreporter", rec.Reporter)
	assert.Equal(t, "submitted", rec.Status)
}

func TestAnchorDuplicate(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := t.Context()

	_, err := c.Anchor(ctx, "hash-1", "submitted", "0xreporter")
	require.NoError(t, err)
	_, err = c.Anchor(ctx, "hash-1", "submitted", "0xother")
	assert.ErrorIs(t, err, domain.ErrDuplicateHash)
}

func TestGetProofNotFound(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.GetProof(t.Context(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatusMapping(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := t.Context()

	_, err := c.Anchor(ctx, "hash-1", "submitted", "0xreporter")
	require.NoError(t, err)

	assert.ErrorIs(t, c.UpdateStatus(ctx, "hash-1", "completed", "0xstranger"), domain.ErrUnauthorized)
	assert.ErrorIs(t, c.UpdateStatus(ctx, "missing", "completed", "0xreporter"), domain.ErrNotAnchored)
	require.NoError(t, c.UpdateStatus(ctx, "hash-1", "completed", "0xreporter"))

	rec, err := c.GetProof(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", rec.Status)
}

func TestReportExists(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := t.Context()

	exists, err := c.ReportExists(ctx, "hash-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = c.Anchor(ctx, "hash-1", "submitted", "0xreporter")
	require.NoError(t, err)

	exists, err = c.ReportExists(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReportsByAddress(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := t.Context()

	_, err := c.Anchor(ctx, "hash-1", "submitted", "0xreporter")
	require.NoError(t, err)

	hashes, err := c.ReportsByAddress(ctx, "0xreporter")
	require.NoError(t, err)
	assert.Equal(t, []string{"hash-1"}, hashes)
}
