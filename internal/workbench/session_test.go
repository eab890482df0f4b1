package workbench

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/dietapi"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/patient"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/upload"
)

// --------------------------------------------------
// Fake backend
// --------------------------------------------------

type fakeBackend struct {
	extractCalls  int
	generateCalls int

	extractResp *dietapi.ExtractResponse
	extractErr  error
	dietResp    *dietapi.DietPlan
	dietErr     error

	gotFiles   []upload.File
	gotPatient patient.Patient
	gotReq     dietapi.GenerateRequest

	block chan struct{}
}

func (f *fakeBackend) Extract(ctx context.Context, files []upload.File, p patient.Patient) (*dietapi.ExtractResponse, error) {
	f.extractCalls++
	f.gotFiles = files
	f.gotPatient = p
	if f.block != nil {
		<-f.block
	}
	return f.extractResp, f.extractErr
}

func (f *fakeBackend) GenerateDiet(ctx context.Context, req dietapi.GenerateRequest) (*dietapi.DietPlan, error) {
	f.generateCalls++
	f.gotReq = req
	return f.dietResp, f.dietErr
}

var sampleFiles = []upload.File{{Name: "rx.png", ContentType: "image/png", Size: 3, Data: []byte("abc")}}

// --------------------------------------------------
// Extraction
// --------------------------------------------------

func TestExtract_NoFiles(t *testing.T) {
	fb := &fakeBackend{}
	s := NewSession("s1", fb)

	err := s.Extract(context.Background())
	if !errors.Is(err, ErrNoFiles) {
		t.Fatalf("expected ErrNoFiles, got %v", err)
	}
	if fb.extractCalls != 0 {
		t.Fatalf("expected no backend call, got %d", fb.extractCalls)
	}
	if got := s.Snapshot().Error; got != "Please upload at least one prescription/report file." {
		t.Fatalf("unexpected error message %q", got)
	}
}

func TestExtract_RawTextShownVerbatim(t *testing.T) {
	fb := &fakeBackend{extractResp: &dietapi.ExtractResponse{
		RawText:  "  Rx: Metformin 500mg BD\n",
		Findings: json.RawMessage(`{"labs":[],"meds":["Metformin"],"diagnosis":[]}`),
	}}
	s := NewSession("s1", fb)
	s.SetFiles(sampleFiles)
	_ = s.SetField("name", "Meera")

	if err := s.Extract(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := s.Snapshot()
	if snap.ExtractedText != "  Rx: Metformin 500mg BD\n" {
		t.Fatalf("unexpected extracted text %q", snap.ExtractedText)
	}
	if snap.Processing || snap.Error != "" {
		t.Fatalf("unexpected state %+v", snap)
	}
	if fb.gotPatient.Name != "Meera" || len(fb.gotFiles) != 1 {
		t.Fatalf("backend got wrong input: %+v %+v", fb.gotPatient, fb.gotFiles)
	}
	if snap.Step != StepGenerate {
		t.Fatalf("expected step %s, got %s", StepGenerate, snap.Step)
	}
}

func TestExtract_FindingsOnly(t *testing.T) {
	fb := &fakeBackend{extractResp: &dietapi.ExtractResponse{
		Findings: json.RawMessage(`{"labs":["LDL 160"],"meds":[],"diagnosis":[]}`),
	}}
	s := NewSession("s1", fb)
	s.SetFiles(sampleFiles)

	if err := s.Extract(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := "{\n  \"labs\": [\n    \"LDL 160\"\n  ],\n  \"meds\": [],\n  \"diagnosis\": []\n}"
	if got := s.Snapshot().ExtractedText; got != want {
		t.Fatalf("unexpected text:\n%s", got)
	}
}

func TestExtract_FailureKeepsPriorResults(t *testing.T) {
	fb := &fakeBackend{extractResp: &dietapi.ExtractResponse{RawText: "first pass"}}
	s := NewSession("s1", fb)
	s.SetFiles(sampleFiles)
	if err := s.Extract(context.Background()); err != nil {
		t.Fatal(err)
	}

	fb.extractResp = nil
	fb.extractErr = &dietapi.StatusError{Endpoint: dietapi.ExtractPath, StatusCode: http.StatusBadGateway}

	err := s.Extract(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	snap := s.Snapshot()
	if !strings.HasPrefix(snap.Error, "Extraction failed:") {
		t.Fatalf("unexpected error slot %q", snap.Error)
	}
	if snap.ExtractedText != "first pass" {
		t.Fatalf("prior result lost: %q", snap.ExtractedText)
	}
	if snap.Processing {
		t.Fatal("processing flag not cleared")
	}
}

func TestExtract_ClearsPreviousError(t *testing.T) {
	fb := &fakeBackend{extractResp: &dietapi.ExtractResponse{RawText: "ok"}}
	s := NewSession("s1", fb)

	_ = s.Extract(context.Background())
	s.SetFiles(sampleFiles)
	if err := s.Extract(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e := s.Snapshot().Error; e != "" {
		t.Fatalf("expected error to be cleared, got %q", e)
	}
}

func TestExtract_BusyWhileInFlight(t *testing.T) {
	fb := &fakeBackend{
		extractResp: &dietapi.ExtractResponse{RawText: "done"},
		block:       make(chan struct{}),
	}
	s := NewSession("s1", fb)
	s.SetFiles(sampleFiles)

	done := make(chan error, 1)
	go func() { done <- s.Extract(context.Background()) }()

	deadline := time.After(2 * time.Second)
	for !s.Snapshot().Processing {
		select {
		case <-deadline:
			t.Fatal("extraction never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := s.GenerateDiet(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for generate, got %v", err)
	}
	if err := s.Extract(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for extract, got %v", err)
	}

	close(fb.block)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fb.generateCalls != 0 {
		t.Fatalf("busy generate must not reach backend")
	}
	if s.Snapshot().ExtractedText != "done" {
		t.Fatal("extraction result missing")
	}
}

// --------------------------------------------------
// Diet generation
// --------------------------------------------------

func TestGenerateDiet_Payload(t *testing.T) {
	fb := &fakeBackend{
		extractResp: &dietapi.ExtractResponse{RawText: "FBS 142 mg/dL"},
		dietResp:    &dietapi.DietPlan{Markdown: "## Day 1"},
	}
	s := NewSession("s1", fb)
	s.SetFiles(sampleFiles)
	for field, value := range map[string]string{
		"weight":     "70",
		"height":     "170",
		"age":        "30",
		"sex":        "male",
		"activity":   "Very Active",
		"allergies":  "peanuts, shellfish,  ",
		"preference": "Vegetarian",
	} {
		if err := s.SetField(field, value); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Extract(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.GenerateDiet(context.Background()); err != nil {
		t.Fatal(err)
	}

	req := fb.gotReq
	if req.ExtractedText != "FBS 142 mg/dL" {
		t.Fatalf("unexpected extracted text %q", req.ExtractedText)
	}
	if !reflect.DeepEqual(req.Constraints.Exclude, []string{"peanuts", "shellfish"}) {
		t.Fatalf("unexpected exclusions %v", req.Constraints.Exclude)
	}
	// 1617.5 * 1.725 = 2790.19
	if req.Constraints.CalorieTarget != 2790 {
		t.Fatalf("unexpected calorie target %d", req.Constraints.CalorieTarget)
	}
	if req.Constraints.Preferences != "Vegetarian" {
		t.Fatalf("unexpected preferences %q", req.Constraints.Preferences)
	}

	snap := s.Snapshot()
	if snap.Diet == nil || snap.Diet.Markdown != "## Day 1" {
		t.Fatalf("diet not stored: %+v", snap.Diet)
	}
	if snap.Step != StepDone {
		t.Fatalf("expected step done, got %s", snap.Step)
	}
}

func TestGenerateDiet_FailureKeepsPriorPlan(t *testing.T) {
	fb := &fakeBackend{dietResp: &dietapi.DietPlan{HTML: "<p>v1</p>"}}
	s := NewSession("s1", fb)

	if err := s.GenerateDiet(context.Background()); err != nil {
		t.Fatal(err)
	}

	fb.dietResp = nil
	fb.dietErr = errors.New("connection refused")

	if err := s.GenerateDiet(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	snap := s.Snapshot()
	if snap.Error != "Diet generation failed: connection refused" {
		t.Fatalf("unexpected error slot %q", snap.Error)
	}
	if snap.Diet == nil || snap.Diet.HTML != "<p>v1</p>" {
		t.Fatal("prior plan lost")
	}
}

func TestSetFieldUnknown(t *testing.T) {
	s := NewSession("s1", &fakeBackend{})
	if err := s.SetField("ssn", "123"); !errors.Is(err, patient.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestSetFilesReplacesWholesale(t *testing.T) {
	s := NewSession("s1", &fakeBackend{})
	s.SetFiles([]upload.File{{Name: "a.png"}, {Name: "b.png"}})
	s.SetFiles([]upload.File{{Name: "c.pdf"}})

	files := s.Snapshot().Files
	if len(files) != 1 || files[0].Name != "c.pdf" {
		t.Fatalf("unexpected files %+v", files)
	}
}
