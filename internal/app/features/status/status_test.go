package status

import (
	"context"
	"errors"
	"net/http"
	"testing"

	jobstore "github.com/dalemusser/filesmanager/internal/app/store/jobs"
	"github.com/dalemusser/filesmanager/internal/app/system/jobrunner"
	"github.com/dalemusser/filesmanager/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type fixedCount struct {
	n   int64
	err error
}

func (c fixedCount) Count(context.Context) (int64, error) { return c.n, c.err }

type fixedStats struct {
	stats jobrunner.Stats
	err   error
}

func (s fixedStats) Stats(context.Context) (jobrunner.Stats, error) { return s.stats, s.err }

var (
	up   = PingFunc(func(context.Context) error { return nil })
	down = PingFunc(func(context.Context) error { return errors.New("down") })
)

func serve(h *Handler, path string) *testutil.ResponseRecorder {
	r := chi.NewRouter()
	Mount(r, h)
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, testutil.NewRequest(http.MethodGet, path))
	return rec
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		kv, db Pinger
		want   StatusResponse
	}{
		{"both up", up, up, StatusResponse{Redis: true, DB: true}},
		{"kv down", down, up, StatusResponse{Redis: false, DB: true}},
		{"db down", up, down, StatusResponse{Redis: true, DB: false}},
		{"unwired", nil, nil, StatusResponse{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(&Handler{KV: tt.kv, DB: tt.db, Logger: zap.NewNop()}, "/status")
			rec.AssertStatus(t, http.StatusOK)

			var got StatusResponse
			rec.DecodeJSON(t, &got)
			if got != tt.want {
				t.Errorf("body = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStats(t *testing.T) {
	rec := serve(&Handler{
		Users:  fixedCount{n: 4},
		Files:  fixedCount{n: 30},
		Logger: zap.NewNop(),
	}, "/stats")
	rec.AssertStatus(t, http.StatusOK)

	var got StatsResponse
	rec.DecodeJSON(t, &got)
	if got.Users != 4 || got.Files != 30 {
		t.Errorf("body = %+v, want users 4 files 30", got)
	}
}

func TestStats_CountFailureReadsZero(t *testing.T) {
	rec := serve(&Handler{
		Users:  fixedCount{err: errors.New("db gone")},
		Files:  fixedCount{n: 2},
		Logger: zap.NewNop(),
	}, "/stats")
	rec.AssertStatus(t, http.StatusOK)

	var got StatsResponse
	rec.DecodeJSON(t, &got)
	if got.Users != 0 || got.Files != 2 {
		t.Errorf("body = %+v, want users 0 files 2", got)
	}
}

func TestJobsStatus(t *testing.T) {
	stats := jobrunner.Stats{
		WorkerID: "abcd1234",
		Queues:   []jobstore.QueueStats{{QueueName: "thumbnails", Pending: 3}},
	}
	rec := serve(&Handler{Jobs: fixedStats{stats: stats}, Logger: zap.NewNop()}, "/status/jobs")
	rec.AssertStatus(t, http.StatusOK)

	var got jobrunner.Stats
	rec.DecodeJSON(t, &got)
	if got.WorkerID != "abcd1234" || len(got.Queues) != 1 || got.Queues[0].Pending != 3 {
		t.Errorf("body = %+v", got)
	}

	failing := serve(&Handler{Jobs: fixedStats{err: errors.New("boom")}, Logger: zap.NewNop()}, "/status/jobs")
	failing.AssertStatus(t, http.StatusInternalServerError)
	failing.AssertError(t, "Internal server error")
}
