package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leavedesk/leavedesk/store"
)

func TestRecorder_Observe(t *testing.T) {
	r := New()
	r.Observe(context.Background(), "get_employee", true, time.Millisecond)
	r.Observe(context.Background(), "get_employee", false, time.Millisecond)
	r.Observe(context.Background(), "get_employee", false, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.operations.WithLabelValues("get_employee", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.operations.WithLabelValues("get_employee", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.opDuration))
}

func TestRecorder_ObserveHTTP(t *testing.T) {
	r := New()
	r.ObserveHTTP(http.MethodGet, "/api/v1/employees/{id}", 404, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("GET", "/api/v1/employees/{id}", "404")))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.Observe(context.Background(), "list_employees", true, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `leavedesk_operations_total{operation="list_employees",result="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

type fakeStats struct{}

func (fakeStats) Stats() (store.Stats, error) {
	return store.Stats{
		Backend: store.Memory,
		Size:    4096,
		Reads:   7,
		Writes:  3,
		Tables:  []store.TableStats{{Name: "employees", Rows: 2}, {Name: "leave_requests", Rows: 5}},
	}, nil
}

func TestRecorder_WatchStore(t *testing.T) {
	r := New()
	r.WatchStore(fakeStats{})
	assert.Equal(t, 5, testutil.CollectAndCount(storeCollector{fakeStats{}}))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `leavedesk_store_rows{table="leave_requests"} 5`)
	assert.Contains(t, body, `leavedesk_store_size_bytes{backend="memory"} 4096`)
	assert.Contains(t, body, `leavedesk_store_transactions_total{mode="write"} 3`)
}

func scrape(t *testing.T, r *Recorder) string {
	t.Helper()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRecorder_WatchStore_scrapesAreNotReads(t *testing.T) {
	type row struct{ N int }
	scm := store.NewSchema()
	tbl := store.AddTable[row](scm, "rows", 1, 0)
	db, err := store.Open("", scm, store.Options{Backend: store.Memory})
	require.NoError(t, err)
	defer db.Close()

	r := New()
	r.WatchStore(db)
	scrape(t, r)
	assert.Contains(t, scrape(t, r), `leavedesk_store_transactions_total{mode="read"} 0`)

	require.NoError(t, db.Read(func(tx *store.Tx) error {
		_, err := tbl.Get(tx, 1)
		return err
	}))
	body := scrape(t, r)
	assert.Contains(t, body, `leavedesk_store_transactions_total{mode="read"} 1`)
	assert.Contains(t, body, `leavedesk_store_transactions_total{mode="write"} 0`)
}
