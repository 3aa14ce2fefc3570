package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nnnkkk7/pgcompat/pkg/config"
	"github.com/nnnkkk7/pgcompat/pkg/patch"
	"github.com/nnnkkk7/pgcompat/server/types"
)

// runCommand executes the root command in an empty working directory so no
// config file or .env is picked up.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("PGCOMPAT_DSN", "")
	t.Setenv("PGCOMPAT_DRIVER", "")

	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTranslateCommand(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{
			name: "Args",
			args: []string{"translate", "SELECT IFNULL(a, 0) FROM t", "SELECT IF(x, 1, 2) FROM t USE INDEX (idx_x)"},
			want: "SELECT COALESCE(a, 0) FROM t\nSELECT CASE WHEN x THEN 1 ELSE 2 END FROM t\n",
		},
		{
			name:  "Stdin",
			stdin: "SELECT SUM(IF(amount > 0, amount, 0)) FROM `tabGL Entry`\n",
			args:  []string{"translate"},
			want:  "SELECT SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END) FROM `tabGL Entry`\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runCommand(t, tt.stdin, tt.args...)
			if err != nil {
				t.Fatalf("translate error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTranslateCommand_JSON(t *testing.T) {
	out, err := runCommand(t, "", "translate", "--json", "UPDATE t SET a = IF(b, 1, 0)")
	if err != nil {
		t.Fatalf("translate error = %v", err)
	}

	var results []types.TranslateResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Transformed != "UPDATE t SET a = CASE WHEN b THEN 1 ELSE 0 END" || results[0].Converted != 1 {
		t.Errorf("result = %+v", results[0])
	}
}

func TestTranslateCommand_EmptyStdin(t *testing.T) {
	if _, err := runCommand(t, "  \n", "translate"); err == nil {
		t.Error("translate with empty stdin: error = nil, want error")
	}
}

func TestDatabaseCommandsRequireDSN(t *testing.T) {
	for _, name := range []string{"install-functions", "verify-functions", "drop-functions", "status"} {
		t.Run(name, func(t *testing.T) {
			_, err := runCommand(t, "", name)
			if !errors.Is(err, errNoDatabase) {
				t.Errorf("%s error = %v, want %v", name, err, errNoDatabase)
			}
		})
	}
}

func TestStatusCommand_DuckDB(t *testing.T) {
	out, err := runCommand(t, "", "status", "--driver", "duckdb", "--json")
	if err != nil {
		t.Fatalf("status error = %v", err)
	}

	var got struct {
		Status  patch.Status `json:"status"`
		Patches []patch.Info `json:"patches"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if !got.Status.Installed || got.Status.Installs != 1 {
		t.Errorf("status = %+v", got.Status)
	}
	if len(got.Patches) != 3 {
		t.Errorf("got %d patches, want 3", len(got.Patches))
	}
}

func TestNewApp_WithoutDatabase(t *testing.T) {
	cfg := config.Default()
	ctx := context.Background()

	if _, err := newApp(ctx, &cfg, testLogger(), true); !errors.Is(err, errNoDatabase) {
		t.Fatalf("newApp(requireDB) error = %v, want %v", err, errNoDatabase)
	}

	a, err := newApp(ctx, &cfg, testLogger(), false)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if a.registry != nil || a.installer != nil {
		t.Error("app without database has a registry or installer")
	}

	srv := httptest.NewServer(newRouter(a))
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", strings.NewReader(`{"sql": "SELECT 1"}`))
	if err != nil {
		t.Fatalf("POST /api/v1/query error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestNewRouter_DuckDB(t *testing.T) {
	cfg := config.Default()
	cfg.Driver = "duckdb"
	cfg.PersistDiagnostics = true

	a, err := newApp(context.Background(), &cfg, testLogger(), true)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if a.store == nil {
		t.Fatal("persisted diagnostics enabled but no store was created")
	}

	srv := httptest.NewServer(newRouter(a))
	t.Cleanup(srv.Close)

	health, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	_ = health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", health.StatusCode, http.StatusOK)
	}

	resp, err := http.Post(srv.URL+"/api/v1/query", "application/json",
		strings.NewReader(`{"sql": "SELECT IF(1 > 0, 'yes', 'no') AS answer"}`))
	if err != nil {
		t.Fatalf("POST /api/v1/query error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var got types.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if diff := cmp.Diff([][]any{{"yes"}}, got.Data.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}
