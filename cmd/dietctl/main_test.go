package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/dietapi"
)

func setTestEnv(t *testing.T, backend string) {
	t.Helper()
	t.Setenv("APP_ENV", "production")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("AUTH_ENABLED", "")
	t.Setenv("BACKEND_URL", backend)
}

func TestEstimate(t *testing.T) {
	setTestEnv(t, "http://localhost:8000")

	var out bytes.Buffer
	args := []string{"-weight", "70", "-height", "170", "-age", "30", "-sex", "female", "-activity", "Very Active"}
	if err := run(context.Background(), "estimate", args, &out); err != nil {
		t.Fatal(err)
	}
	// 1451.5 * 1.725 = 2503.84
	if got := strings.TrimSpace(out.String()); got != "2504 kcal/day" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestExtractRequiresFiles(t *testing.T) {
	setTestEnv(t, "http://127.0.0.1:1")

	err := run(context.Background(), "extract", nil, io.Discard)
	if err == nil || err.Error() != "Please upload at least one prescription/report file." {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestPlan(t *testing.T) {
	var gotExclude []string
	mux := http.NewServeMux()
	mux.HandleFunc(dietapi.ExtractPath, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"raw_text":"TSH 6.1"}`)
	})
	mux.HandleFunc(dietapi.GeneratePath, func(w http.ResponseWriter, r *http.Request) {
		var req dietapi.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		gotExclude = req.Constraints.Exclude
		io.WriteString(w, `{"diet_chart_markdown":"# Plan\n- millet roti"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	setTestEnv(t, srv.URL)

	path := filepath.Join(t.TempDir(), "thyroid.png")
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n0000"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	args := []string{"-allergies", "gluten, ", path}
	if err := run(context.Background(), "plan", args, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "millet roti") {
		t.Fatalf("plan not printed: %q", out.String())
	}
	if len(gotExclude) != 1 || gotExclude[0] != "gluten" {
		t.Fatalf("unexpected exclusions %v", gotExclude)
	}
}

func TestUnknownCommand(t *testing.T) {
	setTestEnv(t, "http://localhost:8000")

	if err := run(context.Background(), "serve", nil, io.Discard); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
