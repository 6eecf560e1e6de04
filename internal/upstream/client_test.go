package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/slot"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Token: "secret", Timeout: time.Second})
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"})
	require.Error(t, err)

	c, err := New(Config{BaseURL: "http://localhost:8080/"})
	require.NoError(t, err)
	require.Nil(t, c.limiter)
}

func TestRecord_OutcomesAreValues(t *testing.T) {
	var gotAuth string
	var gotBody v1.RecordRequest
	status := http.StatusCreated
	result := v1.RecordResult{Outcome: v1.OutcomeCreated, Event: &v1.CollectionEvent{ID: "e1", Slot: slot.Morning, Quantity: decimal.NewFromInt(10)}}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(result)
	})

	res, err := c.Record(context.Background(), v1.RecordRequest{ProducerID: "P1", Quantity: decimal.NewFromInt(10)})
	require.NoError(t, err)
	require.Equal(t, "Bearer secret", gotAuth)
	require.Equal(t, "P1", gotBody.ProducerID)
	require.Equal(t, v1.OutcomeCreated, res.Outcome)
	require.Equal(t, "10", res.Event.Quantity.String())

	status = http.StatusConflict
	result = v1.RecordResult{Outcome: v1.OutcomeRejected, Rejection: &v1.Rejection{
		Reason:          v1.RejectedUpdateLimitExceeded,
		CurrentQuantity: decimal.NewFromInt(12),
		UpdatesUsed:     1,
	}}
	res, err = c.Record(context.Background(), v1.RecordRequest{ProducerID: "P1", Quantity: decimal.NewFromInt(13)})
	require.NoError(t, err)
	require.True(t, res.Rejected())
	require.Equal(t, "12", res.Rejection.CurrentQuantity.String())
}

func TestRecord_ServerErrors(t *testing.T) {
	status := http.StatusServiceUnavailable
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error_type":"upstream_unavailable","message":"Collection store unavailable"}`))
	})

	_, err := c.Record(context.Background(), v1.RecordRequest{ProducerID: "P1"})
	require.ErrorIs(t, err, ErrUnavailable)

	status = http.StatusBadRequest
	_, err = c.Record(context.Background(), v1.RecordRequest{ProducerID: "P1"})
	require.NotErrorIs(t, err, ErrUnavailable)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusBadRequest, se.StatusCode)
	require.Equal(t, "Collection store unavailable", se.Message)
}

func TestListEvents_SendsFilterAndNormalizes(t *testing.T) {
	start := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	bodies := []string{
		`[{"id":"e1","producer_id":"P1","quantity":"10","revision":3}]`,
		`{"items":[{"id":"e1","producer_id":"P1","quantity":"10","revision":3}],"total_count":1}`,
		`{"data":{"events":[{"id":"e1","producer_id":"P1","quantity":10,"revision":3}]}}`,
	}

	for _, body := range bodies {
		var query map[string]string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/v1/collection-events", r.URL.Path)
			query = map[string]string{
				"producer_id": r.URL.Query().Get("producer_id"),
				"start":       r.URL.Query().Get("start"),
				"end":         r.URL.Query().Get("end"),
			}
			_, _ = w.Write([]byte(body))
		})

		events, err := c.ListEvents(context.Background(), storage.EventFilter{
			ProducerID: "P1",
			Start:      start,
			End:        start.AddDate(0, 0, 1),
		})
		require.NoError(t, err, body)
		require.Len(t, events, 1)
		require.Equal(t, "10", events[0].Quantity.String())
		require.Equal(t, int64(3), events[0].Revision)
		require.Equal(t, "P1", query["producer_id"])
		require.Equal(t, "2026-10-12T00:00:00Z", query["start"])
		require.Equal(t, "2026-10-13T00:00:00Z", query["end"])
	}
}

func TestMaxRevision(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/collection-events/revision", r.URL.Path)
		require.Equal(t, "C1", r.URL.Query().Get("collector_id"))
		_, _ = w.Write([]byte(`{"max_revision":42}`))
	})

	rev, err := c.MaxRevision(context.Background(), storage.EventFilter{CollectorID: "C1"})
	require.NoError(t, err)
	require.Equal(t, int64(42), rev)
}

func TestListDirectory_DuckTypedShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		total int
	}{
		{"envelope", `{"items":[{"id":"P1","name":"Achieng"}],"total_count":23}`, 23},
		{"rows", `{"rows":[{"id":"P1","name":"Achieng"}],"totalCount":23}`, 23},
		{"farmers", `{"farmers":[{"id":"P1","name":"Achieng"}],"total":23}`, 23},
		{"nested porters", `{"success":true,"data":{"porters":[{"id":"P1","name":"Achieng"}],"count":23}}`, 23},
		{"bare array", `[{"id":"P1","name":"Achieng"}]`, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "producers", r.URL.Query().Get("kind"))
				require.Equal(t, "2", r.URL.Query().Get("page"))
				require.Equal(t, "10", r.URL.Query().Get("page_size"))
				require.Equal(t, "ach", r.URL.Query().Get("filter"))
				_, _ = w.Write([]byte(tc.body))
			})

			page, err := c.ListDirectory(context.Background(), storage.DirectoryQuery{
				Kind: v1.KindProducers, Filter: "ach", Page: 2, PageSize: 10,
			})
			require.NoError(t, err)
			require.Equal(t, tc.total, page.TotalCount)
			require.Equal(t, []v1.Party{{ID: "P1", Name: "Achieng"}}, page.Items)
		})
	}
}

func TestListDirectory_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})

	_, err := c.ListDirectory(context.Background(), storage.DirectoryQuery{Kind: v1.KindProducers, PageSize: 10})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.MaxRevision(context.Background(), storage.EventFilter{})
	require.ErrorIs(t, err, ErrUnavailable)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRateLimiterHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"max_revision":1}`))
	})
	c.limiter = rate.NewLimiter(rate.Limit(0.001), 1)

	_, err := c.MaxRevision(context.Background(), storage.EventFilter{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.MaxRevision(ctx, storage.EventFilter{})
	require.ErrorIs(t, err, ErrUnavailable)
}
