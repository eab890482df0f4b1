package dietapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/logger"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/patient"
	"github.com/syedazmehaider/maxlife-diet-planner/internal/upload"

	"go.uber.org/zap"
)

const (
	ExtractPath  = "/api/extract"
	GeneratePath = "/api/generate-diet"

	maxErrorBody = 512
)

// Client talks to the OCR / extraction / diet generation backend.
type Client struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// --------------------------------------------------
// POST /api/extract
// --------------------------------------------------

// Extract uploads the staged files as file0..fileN together with the
// patient record serialized into the "patient" field.
func (c *Client) Extract(ctx context.Context, files []upload.File, p patient.Patient) (*ExtractResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for i, f := range files {
		part, err := writer.CreatePart(fileHeader(fmt.Sprintf("file%d", i), f))
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", f.Name, err)
		}
	}

	patientJSON, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patient: %w", err)
	}
	if err := writer.WriteField("patient", string(patientJSON)); err != nil {
		return nil, fmt.Errorf("failed to write patient field: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	raw, err := c.post(ctx, ExtractPath, writer.FormDataContentType(), body)
	if err != nil {
		return nil, err
	}

	var result ExtractResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	logger.Info("extraction completed",
		zap.Int("files", len(files)),
		zap.Int("raw_text_len", len(result.RawText)),
	)

	return &result, nil
}

// --------------------------------------------------
// POST /api/generate-diet
// --------------------------------------------------

func (c *Client) GenerateDiet(ctx context.Context, req GenerateRequest) (*DietPlan, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	raw, err := c.post(ctx, GeneratePath, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var plan DietPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse diet response: %w", err)
	}
	plan.Raw = raw

	logger.Info("diet plan generated",
		zap.Int("calorie_target", req.Constraints.CalorieTarget),
		zap.Int("exclusions", len(req.Constraints.Exclude)),
	)

	return &plan, nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("backend returned error status",
			zap.String("endpoint", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &StatusError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(raw)), maxErrorBody),
		}
	}

	return raw, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func fileHeader(field string, f upload.File) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	return h
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
