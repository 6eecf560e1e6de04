package projection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jolla3/maziwa-smart-sub000/internal/aggregation"
	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	coreagg "github.com/jolla3/maziwa-smart-sub000/internal/core/aggregation"
	httperr "github.com/jolla3/maziwa-smart-sub000/internal/core/errors"
	storagemocks "github.com/jolla3/maziwa-smart-sub000/internal/mocks/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func serve(svc *Service, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHandleRollup_ServesCachedRollup(t *testing.T) {
	f := newFixture(t)
	f.record(t, "P1", 10, day.Add(6*time.Hour))

	resp := serve(f.svc, "/v1/rollups?dimension=producer&id=P1&granularity=day&start=2026-10-12")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		TotalQuantity string `json:"total_quantity"`
		CountEvents   int64  `json:"count_events"`
		CacheState    string `json:"cache_state"`
		Stale         bool   `json:"stale"`
		FetchedAt     string `json:"fetched_at"`
		Key           struct {
			Dimension string `json:"dimension"`
			ID        string `json:"id"`
		} `json:"key"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "10", body.TotalQuantity)
	require.Equal(t, int64(1), body.CountEvents)
	require.Equal(t, "fresh", body.CacheState)
	require.False(t, body.Stale)
	require.NotEmpty(t, body.FetchedAt)
	require.Equal(t, "producer", body.Key.Dimension)
	require.Equal(t, "P1", body.Key.ID)
}

func TestHandleRollup_StatusMapping(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		err            error
		expectedStatus int
		expectedType   string
	}{
		{
			name:           "unknown granularity returns 400",
			query:          "granularity=year",
			expectedStatus: http.StatusBadRequest,
			expectedType:   httperr.HttpInvalidQueryError,
		},
		{
			name:           "producer without id returns 400",
			query:          "dimension=producer",
			expectedStatus: http.StatusBadRequest,
			expectedType:   httperr.HttpInvalidQueryError,
		},
		{
			name:           "bad boolean returns 400",
			query:          "allow_stale=maybe",
			expectedStatus: http.StatusBadRequest,
			expectedType:   httperr.HttpInvalidQueryError,
		},
		{
			name:           "engine timeout returns 504",
			err:            &aggregation.Error{Kind: aggregation.KindTimeout, Err: context.DeadlineExceeded},
			expectedStatus: http.StatusGatewayTimeout,
			expectedType:   httperr.HttpTimeoutError,
		},
		{
			name:           "source failure returns 503",
			err:            &aggregation.Error{Kind: aggregation.KindUpstreamUnavailable, Err: errors.New("db down")},
			expectedStatus: http.StatusServiceUnavailable,
			expectedType:   httperr.HttpUpstreamUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := engineFunc(func(_ context.Context, key coreagg.Key) (*coreagg.Rollup, error) {
				if tc.err != nil {
					return nil, tc.err
				}
				return &coreagg.Rollup{Key: key}, nil
			})
			svc := NewService(engine, nil, nil, Options{})
			t.Cleanup(svc.Close)

			resp := serve(svc, "/v1/rollups?"+tc.query)
			if resp.Code != tc.expectedStatus {
				t.Logf("unexpected response body: %s", resp.Body.String())
			}
			require.Equal(t, tc.expectedStatus, resp.Code)

			var errResp httperr.ErrorResponse
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
			require.Equal(t, tc.expectedType, errResp.ErrorType)
			require.NotContains(t, resp.Body.String(), "db down")
		})
	}
}

func TestHandleEvents_Envelope(t *testing.T) {
	f := newFixture(t)
	f.record(t, "P1", 10, day.Add(6*time.Hour))
	f.record(t, "P1", 6, day.Add(18*time.Hour))
	f.record(t, "P2", 3, day.Add(6*time.Hour))

	resp := serve(f.svc, "/v1/collection-events?producer_id=P1&start=2026-10-12&end=2026-10-13")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var list v1.EventList
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Equal(t, 2, list.TotalCount)
	require.Len(t, list.Items, 2)
	require.Equal(t, int64(2), list.MaxRevision)

	resp = serve(f.svc, "/v1/collection-events?slot=evening")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Equal(t, 1, list.TotalCount)
	require.Equal(t, "6", list.Items[0].Quantity.String())

	for _, target := range []string{
		"/v1/collection-events?slot=night",
		"/v1/collection-events?start=2026-10-13&end=2026-10-12",
		"/v1/collection-events?start=tomorrow",
	} {
		resp = serve(f.svc, target)
		require.Equal(t, http.StatusBadRequest, resp.Code, target)
	}
}

func TestHandleRevision(t *testing.T) {
	f := newFixture(t)
	f.record(t, "P1", 10, day.Add(6*time.Hour))
	f.record(t, "P2", 3, day.Add(6*time.Hour))

	resp := serve(f.svc, "/v1/collection-events/revision?producer_id=P1")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"max_revision":1}`, resp.Body.String())

	resp = serve(f.svc, "/v1/collection-events/revision")
	require.JSONEq(t, `{"max_revision":2}`, resp.Body.String())
}

func TestHandleRevision_StoreFailure(t *testing.T) {
	store := storagemocks.NewCollectionStore(t)
	store.EXPECT().MaxRevision(mock.Anything, mock.Anything).Return(int64(0), errors.New("connection refused")).Once()

	svc := NewService(engineFunc(nil), nil, store, Options{})
	t.Cleanup(svc.Close)

	resp := serve(svc, "/v1/collection-events/revision?collector_id=C1")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.NotContains(t, resp.Body.String(), "connection refused")
}
