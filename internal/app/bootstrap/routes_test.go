package bootstrap

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/filesmanager/internal/app/system/content"
	"github.com/dalemusser/filesmanager/internal/app/system/kv"
	"github.com/dalemusser/filesmanager/internal/app/thumbnails"
	"github.com/dalemusser/filesmanager/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type apiFixture struct {
	t      *testing.T
	router http.Handler
	svc    *services
	mr     *miniredis.Miniredis
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	backend := kv.NewRedis(kv.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { backend.Close() })

	deps := DBDeps{
		MongoClient:   db.Client(),
		MongoDatabase: db,
		KV:            backend,
		Content:       content.New(afero.NewMemMapFs(), "/store"),
	}
	appCfg := AppConfig{
		SessionTTL:           24 * time.Hour,
		ThumbnailWorkers:     1,
		ThumbnailMaxAttempts: 3,
		JobPollInterval:      time.Second,
		JobRetryDelay:        time.Second,

		RateLimitEnabled:         true,
		RateLimitConnectAttempts: 3,
	}

	logger := zap.NewNop()
	s := newServices(appCfg, deps, logger)
	r := chi.NewRouter()
	mountAPI(r, deps, s, logger)
	return &apiFixture{t: t, router: r, svc: s, mr: mr}
}

func (f *apiFixture) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) connect(email, password string) string {
	f.t.Helper()
	req := testutil.NewRequest(http.MethodGet, "/connect")
	req.SetBasicAuth(email, password)
	rec := f.do(req)
	rec.AssertStatus(f.t, http.StatusOK)
	var body struct {
		Token string `json:"token"`
	}
	rec.DecodeJSON(f.t, &body)
	return body.Token
}

func TestAPI_AccountFlow(t *testing.T) {
	f := newAPIFixture(t)
	register := `{"email":"bob@dylan.com","password":"toto1234!"}`

	f.do(testutil.NewJSONRequest(http.MethodPost, "/users", register)).AssertStatus(t, http.StatusCreated)

	again := f.do(testutil.NewJSONRequest(http.MethodPost, "/users", register))
	again.AssertStatus(t, http.StatusBadRequest)
	again.AssertError(t, "Already exist")

	token := f.connect("bob@dylan.com", "toto1234!")
	if token == "" {
		t.Fatal("connect returned empty token")
	}

	me := f.do(testutil.WithToken(testutil.NewRequest(http.MethodGet, "/users/me"), token))
	me.AssertStatus(t, http.StatusOK)
	me.AssertContains(t, `"email":"bob@dylan.com"`)

	f.do(testutil.WithToken(testutil.NewRequest(http.MethodGet, "/disconnect"), token)).
		AssertStatus(t, http.StatusNoContent)
	f.do(testutil.WithToken(testutil.NewRequest(http.MethodGet, "/disconnect"), token)).
		AssertStatus(t, http.StatusUnauthorized)
	f.do(testutil.WithToken(testutil.NewRequest(http.MethodGet, "/users/me"), token)).
		AssertStatus(t, http.StatusUnauthorized)
}

func TestAPI_ConnectLockout(t *testing.T) {
	f := newAPIFixture(t)
	f.do(testutil.NewJSONRequest(http.MethodPost, "/users", `{"email":"l@x.com","password":"pw"}`)).
		AssertStatus(t, http.StatusCreated)

	for i := 0; i < 3; i++ {
		req := testutil.NewRequest(http.MethodGet, "/connect")
		req.SetBasicAuth("l@x.com", "wrong")
		f.do(req).AssertStatus(t, http.StatusUnauthorized)
	}

	req := testutil.NewRequest(http.MethodGet, "/connect")
	req.SetBasicAuth("l@x.com", "pw")
	f.do(req).AssertStatus(t, http.StatusUnauthorized)
}

func TestAPI_SessionExpires(t *testing.T) {
	f := newAPIFixture(t)
	f.do(testutil.NewJSONRequest(http.MethodPost, "/users", `{"email":"e@x.com","password":"pw"}`)).
		AssertStatus(t, http.StatusCreated)
	token := f.connect("e@x.com", "pw")

	f.mr.FastForward(24*time.Hour + time.Second)

	f.do(testutil.WithToken(testutil.NewRequest(http.MethodGet, "/users/me"), token)).
		AssertStatus(t, http.StatusUnauthorized)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestAPI_ImageThumbnails(t *testing.T) {
	f := newAPIFixture(t)
	f.do(testutil.NewJSONRequest(http.MethodPost, "/users", `{"email":"img@x.com","password":"pw"}`)).
		AssertStatus(t, http.StatusCreated)
	token := f.connect("img@x.com", "pw")

	body := fmt.Sprintf(`{"name":"photo.png","type":"image","isPublic":true,"data":%q}`,
		base64.StdEncoding.EncodeToString(pngBytes(t, 800, 400)))
	rec := f.do(testutil.WithToken(testutil.NewJSONRequest(http.MethodPost, "/files", body), token))
	rec.AssertStatus(t, http.StatusCreated)
	var created struct {
		ID string `json:"id"`
	}
	rec.DecodeJSON(t, &created)

	f.do(testutil.NewRequest(http.MethodGet, "/files/"+created.ID+"/data?size=100")).
		AssertStatus(t, http.StatusNotFound)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if !f.svc.runner.ProcessNext(ctx, thumbnails.Queue) {
		t.Fatal("no thumbnail job was queued")
	}

	for _, w := range thumbnails.Widths {
		rec := f.do(testutil.NewRequest(http.MethodGet, fmt.Sprintf("/files/%s/data?size=%d", created.ID, w)))
		rec.AssertStatus(t, http.StatusOK)
		cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
		if err != nil {
			t.Fatalf("size %d: decode: %v", w, err)
		}
		if cfg.Width != w || cfg.Height != w/2 {
			t.Errorf("size %d: got %dx%d, want %dx%d", w, cfg.Width, cfg.Height, w, w/2)
		}
	}
}

func TestAPI_StatusAndStats(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(testutil.NewRequest(http.MethodGet, "/status"))
	rec.AssertStatus(t, http.StatusOK)
	var status struct {
		Redis bool `json:"redis"`
		DB    bool `json:"db"`
	}
	rec.DecodeJSON(t, &status)
	if !status.Redis || !status.DB {
		t.Errorf("status = %+v, want both true", status)
	}

	f.do(testutil.NewJSONRequest(http.MethodPost, "/users", `{"email":"s@x.com","password":"pw"}`)).
		AssertStatus(t, http.StatusCreated)

	rec = f.do(testutil.NewRequest(http.MethodGet, "/stats"))
	rec.AssertStatus(t, http.StatusOK)
	var stats struct {
		Users int64 `json:"users"`
		Files int64 `json:"files"`
	}
	rec.DecodeJSON(t, &stats)
	if stats.Users != 1 || stats.Files != 0 {
		t.Errorf("stats = %+v, want users 1 files 0", stats)
	}

	f.mr.Close()
	rec = f.do(testutil.NewRequest(http.MethodGet, "/status"))
	rec.DecodeJSON(t, &status)
	if status.Redis {
		t.Error("redis = true with the server stopped")
	}
}

func TestAPI_UnknownRoute(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(testutil.NewRequest(http.MethodGet, "/nope"))
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertError(t, "Not found")
}
