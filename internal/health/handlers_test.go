package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	dbErr    error
	redisErr error
}

func (f fakeChecker) PingDB(ctx context.Context) error    { return f.dbErr }
func (f fakeChecker) PingRedis(ctx context.Context) error { return f.redisErr }

func readyBody(t *testing.T, rr *httptest.ResponseRecorder) (string, map[string]string) {
	t.Helper()
	var body struct {
		Data struct {
			Status       string            `json:"status"`
			Dependencies map[string]string `json:"dependencies"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Data.Status, body.Data.Dependencies
}

func TestLive(t *testing.T) {
	h := &Handler{}
	rr := httptest.NewRecorder()
	h.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestReadyAllHealthy(t *testing.T) {
	h := &Handler{Checker: fakeChecker{}}
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	status, deps := readyBody(t, rr)
	require.Equal(t, "ok", status)
	require.Equal(t, "ok", deps["postgres"])
	require.Equal(t, "ok", deps["redis"])
}

func TestReadyRedisDown(t *testing.T) {
	h := &Handler{Checker: fakeChecker{redisErr: errors.New("connection refused")}}
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	status, deps := readyBody(t, rr)
	require.Equal(t, "degraded", status)
	require.Equal(t, "ok", deps["postgres"])
	require.Equal(t, "connection refused", deps["redis"])
}

func TestReadyDBDown(t *testing.T) {
	h := &Handler{Checker: fakeChecker{dbErr: errors.New("no pool")}}
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
