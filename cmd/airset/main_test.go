package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/airset-dev/airset/internal/config"
	airerrors "github.com/airset-dev/airset/internal/errors"
	"github.com/airset-dev/airset/pkg/middleware"
	"github.com/airset-dev/airset/pkg/store"
	"github.com/airset-dev/airset/pkg/tree"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	code := execute(cmd, args, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const (
	userJSON  = `{"name":"ada","age":36,"tags":["a","b"],"address":{"city":"london"}}`
	userYAML  = "name: ada\nage: 36\ntags: [a, b]\naddress:\n  city: london\n"
	olderJSON = `{"name":"ada","age":37,"tags":["a","b"],"address":{"city":"london"}}`
)

func TestEqualModes(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.json", userJSON)
	b := writeDoc(t, dir, "b.yaml", userYAML)
	flat1 := writeDoc(t, dir, "flat1.json", `{"x":1,"y":"z"}`)
	flat2 := writeDoc(t, dir, "flat2.json", `{"y":"z","x":1}`)

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"deep equal across formats", []string{"equal", "--mode", "deep", a, b}, 0, "equal (deep)"},
		{"shallow sees new containers", []string{"equal", a, b}, 1, "not equal (shallow)"},
		{"shallow flat documents", []string{"equal", flat1, flat2}, 0, "equal (shallow)"},
		{"identity of distinct roots", []string{"equal", "-m", "identity", flat1, flat2}, 1, "not equal (identity)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, tt.args...)
			if res.code != tt.code {
				t.Errorf("exit code = %d, want %d (stderr %q)", res.code, tt.code, res.stderr)
			}
			if !strings.Contains(res.stdout, tt.want) {
				t.Errorf("stdout = %q, want %q", res.stdout, tt.want)
			}
		})
	}
}

func TestEqualInvalidMode(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.json", `{}`)

	res := runCLI(t, "equal", "--mode", "fuzzy", a, a)
	if res.code != 2 {
		t.Fatalf("exit code = %d, want 2", res.code)
	}
	if !strings.Contains(res.stderr, "E141") {
		t.Errorf("stderr = %q, want E141", res.stderr)
	}
}

func TestMissingDocument(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.json", `{}`)

	res := runCLI(t, "diff", a, filepath.Join(dir, "nope.json"))
	if res.code != 2 || !strings.Contains(res.stderr, "E042") {
		t.Errorf("result = %+v, want exit 2 with E042", res)
	}

	res = runCLI(t, "clone", filepath.Join(dir, "doc.toml"))
	if res.code != 2 || !strings.Contains(res.stderr, "E040") {
		t.Errorf("result = %+v, want exit 2 with E040", res)
	}
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.json", userJSON)
	b := writeDoc(t, dir, "b.json", `{"name":"ada","age":37,"tags":["a","c"],"extra":true}`)

	res := runCLI(t, "diff", a, b)
	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1 (stderr %q)", res.code, res.stderr)
	}
	want := "$.address\n$.age\n$.tags[1]\n$.extra\n"
	if res.stdout != want {
		t.Errorf("stdout = %q, want %q", res.stdout, want)
	}

	res = runCLI(t, "diff", "--json", a, a)
	if res.code != 0 {
		t.Fatalf("exit code = %d, want 0", res.code)
	}
	var paths []string
	if err := json.Unmarshal([]byte(res.stdout), &paths); err != nil || len(paths) != 0 {
		t.Errorf("json output = %q (%v)", res.stdout, err)
	}
}

func TestMerge(t *testing.T) {
	dir := t.TempDir()
	old := writeDoc(t, dir, "old.json", userJSON)
	next := writeDoc(t, dir, "next.json", olderJSON)
	out := filepath.Join(dir, "merged.json")

	res := runCLI(t, "merge", "-o", out, old, next)
	if res.code != 1 {
		t.Fatalf("exit code = %d, want 1 (stderr %q)", res.code, res.stderr)
	}
	for _, want := range []string{"changed (1 paths)", "$.age", "kept 2 subtrees", "$.tags", "$.address"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var merged map[string]any
	if err := json.Unmarshal(data, &merged); err != nil {
		t.Fatal(err)
	}
	if merged["age"] != float64(37) {
		t.Errorf("merged age = %v", merged["age"])
	}

	res = runCLI(t, "merge", "-q", old, old)
	if res.code != 0 || res.stdout != "" {
		t.Errorf("merging a document with itself: %+v", res)
	}
}

func TestKeptSubtrees(t *testing.T) {
	shared := tree.NewSequence(tree.Str("a"))
	old := tree.NewMapping(
		tree.P("list", shared),
		tree.P("nested", tree.NewMapping(tree.P("inner", tree.NewMapping()))),
	)
	result := tree.NewMapping(
		tree.P("list", shared),
		tree.P("nested", tree.NewMapping(tree.P("inner", tree.NewMapping()))),
	)
	inner, _ := old.Get("nested")
	innerOld, _ := inner.(*tree.Mapping).Get("inner")
	nested, _ := result.Get("nested")
	nested.(*tree.Mapping).Set("inner", innerOld)

	got := keptSubtrees(old, result)
	want := []tree.Path{"$.list", "$.nested.inner"}
	if len(got) != len(want) {
		t.Fatalf("keptSubtrees = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keptSubtrees[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestClone(t *testing.T) {
	dir := t.TempDir()
	src := writeDoc(t, dir, "src.yaml", userYAML)

	res := runCLI(t, "clone", src)
	if res.code != 0 {
		t.Fatalf("exit code = %d (stderr %q)", res.code, res.stderr)
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(res.stdout), &doc); err != nil {
		t.Fatalf("clone output is not JSON: %v\n%s", err, res.stdout)
	}
	if doc["name"] != "ada" {
		t.Errorf("clone = %v", doc)
	}

	out := filepath.Join(dir, "copy.json")
	res = runCLI(t, "clone", "-o", out, src)
	if res.code != 0 || !strings.Contains(res.stdout, "cloned") {
		t.Errorf("clone -o: %+v", res)
	}
	if res := runCLI(t, "equal", "--mode", "deep", src, out); res.code != 0 {
		t.Errorf("clone written to %s differs from the source: %+v", out, res)
	}
}

func TestVersion(t *testing.T) {
	res := runCLI(t, "version", "--short")
	if res.code != 0 || strings.TrimSpace(res.stdout) != version {
		t.Errorf("version --short = %+v", res)
	}
	res = runCLI(t, "version")
	if !strings.Contains(res.stdout, "Go version:") {
		t.Errorf("version = %q", res.stdout)
	}
}

func TestLoadServeConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, config.ConfigFileName, `{
  "store": {"compare": "deep"},
  "inspector": {"address": "127.0.0.1:9000"},
  "documents": [{"file": "state.json"}]
}`)

	cfg, err := loadServeConfig(serveOptions{configPath: path, addr: "127.0.0.1:9100", debug: true})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Inspector.Address != "127.0.0.1:9100" {
		t.Errorf("address = %q, flag should win", cfg.Inspector.Address)
	}
	if !cfg.Store.Debug || cfg.CompareMode() != store.CompareDeep {
		t.Errorf("store config = %+v", cfg.Store)
	}
	if len(cfg.Documents) != 1 || cfg.Documents[0].Name != "state" {
		t.Errorf("documents = %+v", cfg.Documents)
	}

	_, err = loadServeConfig(serveOptions{configPath: filepath.Join(dir, "missing.json")})
	if airerrors.Code(err) != "E140" {
		t.Errorf("missing config error = %v, want E140", err)
	}

	_, err = loadServeConfig(serveOptions{configPath: path, addr: "nonsense"})
	if airerrors.Code(err) != "E122" {
		t.Errorf("bad address error = %v, want E122", err)
	}
}

func TestBuildInspector(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "state.json", `{"count":1}`)
	cart := writeDoc(t, dir, "cart.yaml", "items: [apple]\n")
	path := writeDoc(t, dir, config.ConfigFileName, `{"documents": [{"file": "state.json"}]}`)

	cfg, err := loadServeConfig(serveOptions{configPath: path})
	if err != nil {
		t.Fatal(err)
	}
	cfg.Inspector.DisableMetrics = true

	insp, stores, err := buildInspector(cfg, []string{cart}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		for _, st := range stores {
			st.Destroy()
		}
	})

	if got := insp.Names(); len(got) != 2 || got[0] != "cart" || got[1] != "state" {
		t.Fatalf("names = %v", got)
	}
	for _, st := range stores {
		if !st.Mounted() {
			t.Errorf("store %s not mounted", st.Name())
		}
	}

	ts := httptest.NewServer(insp.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/stores/state", strings.NewReader(`{"count":2}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}
	st, _ := insp.Store("state")
	if count, _ := st.Data().(*tree.Mapping).Get("count"); count != tree.Int(2) {
		t.Errorf("count = %v, want 2", count)
	}
}

func TestBuildInspectorErrors(t *testing.T) {
	cfg := config.New()
	cfg.Inspector.DisableMetrics = true

	if _, _, err := buildInspector(cfg, nil, nil); airerrors.Code(err) != "E142" {
		t.Errorf("no documents error = %v, want E142", err)
	}

	dir := t.TempDir()
	a := writeDoc(t, dir, "same.json", `{}`)
	b := writeDoc(t, dir, "same.yaml", "{}\n")
	if _, _, err := buildInspector(cfg, []string{a, b}, nil); airerrors.Code(err) != "E081" {
		t.Errorf("duplicate name error = %v, want E081", err)
	}
}

func TestTracerProviderExportsRunSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := newTracerProvider(&buf, "airset-test")
	if err != nil {
		t.Fatal(err)
	}

	st := store.New(tree.NewMapping(tree.P("n", tree.Int(0))),
		store.WithName("traced"),
		store.WithMiddleware(middleware.OpenTelemetry(middleware.WithTracerProvider(tp))),
	)
	defer st.Destroy()

	if _, err := st.Run(context.Background(), func(tc *store.TaskContext) error {
		tc.Data.(*tree.Mapping).Set("n", tree.Int(1))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "airset.run traced") || !strings.Contains(out, "airset-test") {
		t.Errorf("exported spans missing run span:\n%s", out)
	}
}
