package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/airset-dev/airset/pkg/store"
	"github.com/airset-dev/airset/pkg/tree"
	"github.com/prometheus/client_golang/prometheus"
)

// testRegistry is shared because store metrics are registered once per
// process.
var testRegistry = prometheus.NewRegistry()

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(&Config{
		Gatherer:   testRegistry,
		Registerer: testRegistry,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func newUserStore(name string) *store.Store {
	return store.New(tree.NewMapping(
		tree.P("name", tree.Str("ada")),
		tree.P("age", tree.Int(36)),
		tree.P("tags", tree.NewSequence(tree.Str("a"), tree.Str("b"))),
	), store.WithName(name))
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode
}

func putJSON(t *testing.T, url, body string, v any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Cause   string `json:"cause"`
	} `json:"error"`
}

func TestHealthz(t *testing.T) {
	s, ts := newTestServer(t)
	if err := s.Register("a", newUserStore("a")); err != nil {
		t.Fatal(err)
	}

	var body struct {
		Status string `json:"status"`
		Stores int    `json:"stores"`
	}
	if code := getJSON(t, ts.URL+"/healthz", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Status != "ok" || body.Stores != 1 {
		t.Errorf("healthz = %+v", body)
	}
}

func TestListStores(t *testing.T) {
	s, ts := newTestServer(t)
	b := newUserStore("b")
	if err := s.Register("b", b); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("a", newUserStore("a")); err != nil {
		t.Fatal(err)
	}
	b.Set(tree.Int(1))

	var infos []StoreInfo
	if code := getJSON(t, ts.URL+"/stores", &infos); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 stores, got %d", len(infos))
	}
	if infos[0].Name != "a" || infos[1].Name != "b" {
		t.Errorf("stores not sorted: %+v", infos)
	}
	if infos[1].UpdateCount != 1 {
		t.Errorf("b update count = %d, want 1", infos[1].UpdateCount)
	}
}

func TestGetStore(t *testing.T) {
	s, ts := newTestServer(t)
	if err := s.Register("user", newUserStore("user")); err != nil {
		t.Fatal(err)
	}

	var snap struct {
		Name        string         `json:"name"`
		UpdateCount uint64         `json:"updateCount"`
		Data        map[string]any `json:"data"`
	}
	if code := getJSON(t, ts.URL+"/stores/user", &snap); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if snap.Name != "user" || snap.Data["name"] != "ada" || snap.Data["age"] != float64(36) {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestGetUnknownStore(t *testing.T) {
	_, ts := newTestServer(t)

	var body apiError
	if code := getJSON(t, ts.URL+"/stores/missing", &body); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if body.Error.Code != "E080" {
		t.Errorf("error code = %q, want E080", body.Error.Code)
	}
}

func TestPutStore(t *testing.T) {
	s, ts := newTestServer(t)
	st := newUserStore("user")
	if err := s.Register("user", st); err != nil {
		t.Fatal(err)
	}
	tags, _ := st.Data().(*tree.Mapping).Get("tags")

	var res UpdateResult
	code := putJSON(t, ts.URL+"/stores/user", `{"name":"ada","age":36,"tags":["a","b"]}`, &res)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if res.Changed || len(res.Paths) != 0 || res.UpdateCount != 0 {
		t.Errorf("re-sending the same document should change nothing: %+v", res)
	}

	code = putJSON(t, ts.URL+"/stores/user", `{"name":"ada","age":37,"tags":["a","b"]}`, &res)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !res.Changed || res.UpdateCount != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Paths) != 1 || res.Paths[0] != "$.age" {
		t.Errorf("paths = %v, want [$.age]", res.Paths)
	}

	after, _ := st.Data().(*tree.Mapping).Get("tags")
	if after != tags {
		t.Error("unchanged tags should keep their reference after PUT")
	}
}

func TestPutRunsMiddleware(t *testing.T) {
	s, ts := newTestServer(t)
	var runs atomic.Int32
	count := func(next store.RunFunc) store.RunFunc {
		return func(tc *store.TaskContext) error {
			runs.Add(1)
			return next(tc)
		}
	}
	st := store.New(tree.NewMapping(tree.P("n", tree.Int(1))),
		store.WithName("counted"), store.WithMiddleware(count))
	if err := s.Register("counted", st); err != nil {
		t.Fatal(err)
	}

	var res UpdateResult
	if code := putJSON(t, ts.URL+"/stores/counted", `{"n":2}`, &res); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if runs.Load() != 1 || !res.Changed {
		t.Errorf("runs = %d, result = %+v", runs.Load(), res)
	}
}

func TestPutDestroyedStore(t *testing.T) {
	s, ts := newTestServer(t)
	st := newUserStore("dead")
	if err := s.Register("dead", st); err != nil {
		t.Fatal(err)
	}
	st.Destroy()

	var body apiError
	if code := putJSON(t, ts.URL+"/stores/dead", `{"name":"x"}`, &body); code != http.StatusGone {
		t.Fatalf("status = %d, want 410", code)
	}
	if body.Error.Code != "E001" {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestPutInvalidBody(t *testing.T) {
	s, ts := newTestServer(t)
	if err := s.Register("user", newUserStore("user")); err != nil {
		t.Fatal(err)
	}

	var body apiError
	if code := putJSON(t, ts.URL+"/stores/user", `{"name":`, &body); code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
	if body.Error.Code != "E082" || body.Error.Cause == "" {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestPutBodyTooLarge(t *testing.T) {
	s := New(&Config{MaxBodySize: 16, DisableMetrics: true})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	if err := s.Register("user", newUserStore("user")); err != nil {
		t.Fatal(err)
	}

	var body apiError
	code := putJSON(t, ts.URL+"/stores/user", `{"name":"a very long name indeed"}`, &body)
	if code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", code)
	}
}

func TestDiff(t *testing.T) {
	s, ts := newTestServer(t)
	st := newUserStore("user")
	if err := s.Register("user", st); err != nil {
		t.Fatal(err)
	}

	var d Diff
	getJSON(t, ts.URL+"/stores/user/diff", &d)
	if d.UpdateCount != 0 || len(d.Paths) != 0 {
		t.Errorf("diff before any commit = %+v", d)
	}

	if _, err := st.SetPart(tree.NewMapping(tree.P("name", tree.Str("grace")), tree.P("extra", tree.Bool(true)))); err != nil {
		t.Fatal(err)
	}

	getJSON(t, ts.URL+"/stores/user/diff", &d)
	if d.UpdateCount != 1 {
		t.Errorf("update count = %d, want 1", d.UpdateCount)
	}
	want := []tree.Path{"$.name", "$.extra"}
	if len(d.Paths) != len(want) {
		t.Fatalf("paths = %v, want %v", d.Paths, want)
	}
	for i := range want {
		if d.Paths[i] != want[i] {
			t.Errorf("paths[%d] = %s, want %s", i, d.Paths[i], want[i])
		}
	}
}

func TestRegister(t *testing.T) {
	s := New(&Config{DisableMetrics: true})

	if err := s.Register("a", newUserStore("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.Register("a", newUserStore("a2")); !errors.Is(err, ErrStoreExists) {
		t.Errorf("expected ErrStoreExists, got %v", err)
	}
	for _, bad := range []string{"", "a/b"} {
		if err := s.Register(bad, newUserStore("x")); err == nil {
			t.Errorf("Register(%q) should fail", bad)
		}
	}

	if _, ok := s.Store("a"); !ok {
		t.Error("registered store should be found")
	}
	if !s.Unregister("a") {
		t.Error("Unregister should report removal")
	}
	if s.Unregister("a") {
		t.Error("second Unregister should report false")
	}
	if names := s.Names(); len(names) != 0 {
		t.Errorf("names = %v", names)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, ts := newTestServer(t)
	st := newUserStore("metered")
	if err := s.Register("metered", st); err != nil {
		t.Fatal(err)
	}
	st.Set(tree.Int(1))

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `airset_update_count{store="metered"} 1`) {
		t.Errorf("metrics missing update count:\n%s", body)
	}
}

func TestMetricsDisabled(t *testing.T) {
	s := New(&Config{DisableMetrics: true})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := (&Config{Address: ":9999", AllowedOrigins: []string{"http://a"}}).withDefaults()
	def := DefaultConfig()

	if cfg.Address != ":9999" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.MetricsPath != def.MetricsPath || cfg.WatchBuffer != def.WatchBuffer || cfg.PingInterval != def.PingInterval {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.CheckOrigin == nil {
		t.Error("CheckOrigin should default to OriginCheck")
	}

	clone := cfg.Clone()
	clone.AllowedOrigins[0] = "http://b"
	if cfg.AllowedOrigins[0] != "http://a" {
		t.Error("Clone should copy AllowedOrigins")
	}
}

func TestOriginCheck(t *testing.T) {
	check := OriginCheck([]string{"http://trusted.example"})
	tests := []struct {
		origin string
		host   string
		want   bool
	}{
		{"", "localhost:7070", true},
		{"http://localhost:7070", "localhost:7070", true},
		{"http://trusted.example", "localhost:7070", true},
		{"http://evil.example", "localhost:7070", false},
		{"://bad", "localhost:7070", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/stores/x/watch", nil)
		r.Host = tt.host
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := check(r); got != tt.want {
			t.Errorf("origin %q: got %v, want %v", tt.origin, got, tt.want)
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://anything")
	if !OriginCheck([]string{"*"})(r) {
		t.Error("wildcard should allow any origin")
	}
}

func TestServeShutdown(t *testing.T) {
	s := New(&Config{DisableMetrics: true, ShutdownTimeout: time.Second})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Serve() = %v, want nil after shutdown", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestListenAndServeBadAddress(t *testing.T) {
	s := New(&Config{Address: "256.0.0.1:bad", DisableMetrics: true})
	err := s.ListenAndServe(context.Background())
	if !errors.Is(err, ErrStartFailed) {
		t.Errorf("expected ErrStartFailed, got %v", err)
	}
}
