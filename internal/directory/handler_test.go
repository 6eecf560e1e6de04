package directory

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	httperr "github.com/jolla3/maziwa-smart-sub000/internal/core/errors"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	directorymocks "github.com/jolla3/maziwa-smart-sub000/internal/mocks/directory"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestList_ReturnsEnvelope(t *testing.T) {
	h := NewHandler(seededStore(23), 10, 50)

	resp := serve(h, "/v1/directory?kind=producers&page=2&page_size=10")
	require.Equal(t, http.StatusOK, resp.Code)

	var page v1.Page
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &page))
	require.Equal(t, 23, page.TotalCount)
	require.Equal(t, []string{"P21", "P22", "P23"}, ids(page.Items))
}

func TestList_EmptyPageIsEmptyArray(t *testing.T) {
	h := NewHandler(seededStore(3), 10, 50)

	resp := serve(h, "/v1/directory?page=5")
	require.Equal(t, http.StatusOK, resp.Code)
	require.JSONEq(t, `{"items":[],"total_count":3}`, resp.Body.String())
}

func TestList_ClampsPageSize(t *testing.T) {
	source := directorymocks.NewSource(t)
	source.EXPECT().ListDirectory(mock.Anything, storage.DirectoryQuery{
		Kind:     v1.KindCollectors,
		Filter:   "kip",
		Page:     0,
		PageSize: 50,
	}).Return(v1.Page{Items: []v1.Party{}}, nil).Once()

	resp := serve(NewHandler(source, 10, 50), "/v1/directory?kind=collectors&filter=kip&page_size=500")
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestList_BadQuery(t *testing.T) {
	h := NewHandler(seededStore(1), 10, 50)

	for _, target := range []string{
		"/v1/directory?kind=cows",
		"/v1/directory?page=-1",
		"/v1/directory?page=abc",
		"/v1/directory?page_size=0",
	} {
		resp := serve(h, target)
		require.Equal(t, http.StatusBadRequest, resp.Code, target)

		var errResp httperr.ErrorResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
		require.Equal(t, httperr.HttpInvalidQueryError, errResp.ErrorType)
	}
}

func TestList_SourceUnavailable(t *testing.T) {
	source := directorymocks.NewSource(t)
	source.EXPECT().ListDirectory(mock.Anything, mock.Anything).Return(v1.Page{}, errors.New("db down")).Once()

	resp := serve(NewHandler(source, 10, 50), "/v1/directory")
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
