package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	httpin "github.com/Sentinel-Gate/restprovider/internal/adapter/inbound/http"
	"github.com/Sentinel-Gate/restprovider/internal/adapter/outbound/memory"
	"github.com/Sentinel-Gate/restprovider/internal/service"
)

// sandboxURL starts an in-memory sandbox and returns its base URL.
func sandboxURL(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	records := service.NewRecordService(memory.NewRecordStore(), logger)
	srv := httptest.NewServer(httpin.NewServer(records, httpin.WithLogger(logger)).Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

// run executes the CLI with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func decodeOutput(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, s)
	}
	return m
}

func TestRootCmd_Commands(t *testing.T) {
	root := NewRootCmd()
	want := []string{"exec", "list", "get", "create", "update", "delete", "sandbox", "version"}
	for _, name := range want {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	for _, flag := range []string{"config", "base-url", "primary-key", "timeout", "log-level", "output", "trace"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	out, _, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "restprovider "+Version) {
		t.Errorf("output = %q", out)
	}
}

func TestCRUDCommands(t *testing.T) {
	base := sandboxURL(t)

	out, _, err := run(t, "--base-url", base, "create", "users", "--data", `{"_id":"u1","name":"Ada","age":36}`)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created := decodeOutput(t, out)
	data := created["data"].(map[string]any)
	if data["id"] != "u1" || data["name"] != "Ada" {
		t.Errorf("create data = %v", data)
	}
	if _, ok := data["_id"]; ok {
		t.Error("_id not renamed")
	}

	if _, _, err := run(t, "--base-url", base, "create", "users", "--data", `{"_id":"u2","name":"Bob","age":41}`); err != nil {
		t.Fatalf("create u2: %v", err)
	}

	out, _, err = run(t, "--base-url", base, "list", "users", "--sort", "age", "--order", "DESC", "--per-page", "1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	list := decodeOutput(t, out)
	if list["total"] != float64(1) {
		t.Errorf("total = %v, want 1 (page length)", list["total"])
	}
	items := list["data"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["id"] != "u2" {
		t.Errorf("list data = %v", items)
	}

	out, _, err = run(t, "--base-url", base, "update", "users", "u1", "--data", `{"age":37}`)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := decodeOutput(t, out)["data"].(map[string]any)["age"]; got != float64(37) {
		t.Errorf("updated age = %v", got)
	}

	out, _, err = run(t, "--base-url", base, "get", "users", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := decodeOutput(t, out)["data"].(map[string]any)["name"]; got != "Ada" {
		t.Errorf("get name = %v", got)
	}

	if _, _, err := run(t, "--base-url", base, "delete", "users", "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := run(t, "--base-url", base, "get", "users", "u1"); err == nil {
		t.Error("get after delete succeeded")
	}
}

func TestExecCmd_FilterAndYAML(t *testing.T) {
	base := sandboxURL(t)
	for _, d := range []string{`{"_id":"a","role":"admin"}`, `{"_id":"b","role":"user"}`} {
		if _, _, err := run(t, "--base-url", base, "exec", "CREATE", "users", "--params", `{"data":`+d+`}`); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	out, _, err := run(t, "--base-url", base, "-o", "yaml", "exec", "GET_LIST", "users", "--params",
		`{"filter":{"role":"admin"},"pagination":{"page":1,"perPage":10},"sort":{"field":"_id","order":"ASC"}}`)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	for _, want := range []string{"data:", "id: a", "role: admin", "total: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "id: b") {
		t.Errorf("filter not applied:\n%s", out)
	}
}

func TestExecCmd_DryRun(t *testing.T) {
	out, _, err := run(t, "--base-url", "http://example.com", "exec", "GET_LIST", "users", "--dry-run", "--params",
		`{"pagination":{"page":2,"perPage":10},"sort":{"field":"name","order":"DESC"}}`)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	req := decodeOutput(t, out)
	want := "http://example.com/users?limit=10&skip=10&query=%7B%7D&sort=-name"
	if req["method"] != "GET" || req["url"] != want {
		t.Errorf("request = %v", req)
	}
	if h := req["headers"].(map[string]any); h["Content-Type"] != "application/json" {
		t.Errorf("headers = %v", h)
	}
}

func TestExecCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no backend", []string{"exec", "GET_ONE", "users", "--params", `{"id":1}`}, "base_url"},
		{"bad params", []string{"--base-url", "http://example.com", "exec", "GET_ONE", "users", "--params", `{`}, "invalid --params"},
		{"missing id", []string{"--base-url", "http://example.com", "exec", "GET_ONE", "users", "--dry-run"}, "malformed"},
		{"missing data", []string{"--base-url", "http://example.com", "create", "users"}, "--data is required"},
		{"bad output", []string{"--base-url", "http://example.com", "-o", "xml", "get", "users", "1", "--dry-run"}, "Output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestExecCmd_UnknownActionWarns(t *testing.T) {
	_, errOut, err := run(t, "--base-url", "http://example.com", "exec", "GET_MANY", "users", "--dry-run", "--params", `{"id":"7"}`)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !strings.Contains(errOut, "unknown action") {
		t.Errorf("stderr = %q, want warning", errOut)
	}
}

func TestExecCmd_MetricsFile(t *testing.T) {
	base := sandboxURL(t)
	path := filepath.Join(t.TempDir(), "restprovider.prom")

	if _, _, err := run(t, "--base-url", base, "get", "users", "missing", "--metrics-file", path); err == nil {
		t.Fatal("expected not found error")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read metrics file: %v", err)
	}
	if !strings.Contains(string(b), `restprovider_transport_requests_total{method="GET",status="error"} 1`) {
		t.Errorf("metrics file:\n%s", b)
	}
}

func TestWriteOutput_YAMLNumbers(t *testing.T) {
	var buf bytes.Buffer
	v := map[string]any{"num": json.Number("12"), "f": json.Number("1.5"), "s": "x"}
	if err := writeOutput(&buf, "yaml", v); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"num: 12", "f: 1.5", "s: x"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("missing %q in:\n%s", want, buf.String())
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "warning": slog.LevelWarn,
		"error": slog.LevelError, "info": slog.LevelInfo, "": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestExecCmd_TelemetryFile(t *testing.T) {
	base := sandboxURL(t)
	path := filepath.Join(t.TempDir(), "telemetry.json")
	t.Setenv("RESTPROVIDER_TRACING_OUTPUT", "file://"+path)

	if _, _, err := run(t, "--base-url", base, "--trace", "--otel-metrics", "list", "users"); err != nil {
		t.Fatalf("list: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read telemetry file: %v", err)
	}
	for _, want := range []string{"dataprovider.Execute", "dataprovider.executions", "GET_LIST"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("telemetry output missing %q", want)
		}
	}
}
