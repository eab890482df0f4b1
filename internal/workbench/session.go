package workbench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/dietapi"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/patient"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/upload"
)

// User-facing messages shown in the error slot.
const (
	MsgNoFiles             = "Please upload at least one prescription/report file."
	ExtractionFailedPrefix = "Extraction failed: "
	GenerationFailedPrefix = "Diet generation failed: "
)

var (
	ErrNoFiles = errors.New(MsgNoFiles)
	ErrBusy    = errors.New("a request is already in progress")
)

// Backend is the black-box service that reads the reports and writes the
// diet plan. *dietapi.Client satisfies it.
type Backend interface {
	Extract(ctx context.Context, files []upload.File, p patient.Patient) (*dietapi.ExtractResponse, error)
	GenerateDiet(ctx context.Context, req dietapi.GenerateRequest) (*dietapi.DietPlan, error)
}

// Step is how far through upload -> extract -> generate the session is.
type Step string

const (
	StepUpload   Step = "upload"
	StepExtract  Step = "extract"
	StepGenerate Step = "generate"
	StepDone     Step = "done"
)

// Session is one dietitian's form. All fields are guarded by mu; backend
// calls run without holding it and the processing flag keeps a second
// action out meanwhile.
type Session struct {
	mu      sync.Mutex
	id      string
	owner   string
	backend Backend
	now     func() time.Time

	patient    patient.Patient
	files      []upload.File
	extracted  string
	diet       *dietapi.DietPlan
	errMsg     string
	processing bool
	lastSeen   time.Time
}

func NewSession(id string, backend Backend) *Session {
	return newSession(id, backend, time.Now)
}

func newSession(id string, backend Backend, now func() time.Time) *Session {
	return &Session{
		id:       id,
		backend:  backend,
		now:      now,
		patient:  patient.New(),
		lastSeen: now(),
	}
}

func (s *Session) ID() string { return s.id }

// Owner is the user id the session was started for, "" when accounts are off.
func (s *Session) Owner() string { return s.owner }

// SetField updates one patient field by its form name.
func (s *Session) SetField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.patient.Set(field, value)
}

func (s *Session) SetPatient(p patient.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.patient = p
}

func (s *Session) Patient() patient.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patient
}

// SetFiles replaces the staged file set wholesale.
func (s *Session) SetFiles(files []upload.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.files = append([]upload.File(nil), files...)
}

// SetError puts msg in the error slot, e.g. when staging files fails.
func (s *Session) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.errMsg = msg
}

// Extract sends the staged files and patient record for OCR and keeps the
// returned text for display. Prior results survive a failure.
func (s *Session) Extract(ctx context.Context) error {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return ErrBusy
	}
	s.touch()
	if len(s.files) == 0 {
		s.errMsg = MsgNoFiles
		s.mu.Unlock()
		return ErrNoFiles
	}
	s.processing = true
	s.errMsg = ""
	files := append([]upload.File(nil), s.files...)
	p := s.patient
	s.mu.Unlock()

	resp, err := s.backend.Extract(ctx, files, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
	s.touch()

	if err != nil {
		s.errMsg = ExtractionFailedPrefix + err.Error()
		return fmt.Errorf("extract: %w", err)
	}

	s.extracted = resp.DisplayText()
	return nil
}

// GenerateDiet requests a plan for the patient, the extracted text and the
// derived constraints.
func (s *Session) GenerateDiet(ctx context.Context) error {
	s.mu.Lock()
	if s.processing {
		s.mu.Unlock()
		return ErrBusy
	}
	s.touch()
	s.processing = true
	s.errMsg = ""
	req := dietapi.GenerateRequest{
		Patient:       s.patient,
		ExtractedText: s.extracted,
		Constraints:   s.patient.Constraints(),
	}
	s.mu.Unlock()

	plan, err := s.backend.GenerateDiet(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
	s.touch()

	if err != nil {
		s.errMsg = GenerationFailedPrefix + err.Error()
		return fmt.Errorf("generate diet: %w", err)
	}

	s.diet = plan
	return nil
}

// Snapshot is a read-only copy of the session for rendering.
type Snapshot struct {
	ID            string            `json:"id"`
	Patient       patient.Patient   `json:"patient"`
	Files         []upload.File     `json:"files"`
	ExtractedText string            `json:"extracted_text"`
	Diet          *dietapi.DietPlan `json:"diet,omitempty"`
	Error         string            `json:"error,omitempty"`
	Processing    bool              `json:"processing"`
	CalorieTarget int               `json:"calorie_target"`
	Step          Step              `json:"step"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]upload.File, len(s.files))
	copy(files, s.files)

	return Snapshot{
		ID:            s.id,
		Patient:       s.patient,
		Files:         files,
		ExtractedText: s.extracted,
		Diet:          s.diet,
		Error:         s.errMsg,
		Processing:    s.processing,
		CalorieTarget: s.patient.CalorieTarget(),
		Step:          s.step(),
	}
}

func (s *Session) step() Step {
	switch {
	case s.diet != nil:
		return StepDone
	case s.extracted != "":
		return StepGenerate
	case len(s.files) > 0:
		return StepExtract
	default:
		return StepUpload
	}
}

func (s *Session) touch() {
	s.lastSeen = s.now()
}

// idleSince reports when the session was last used and whether a request
// is still running on it.
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen, s.processing
}
