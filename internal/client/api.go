// Package client keeps a local view of the report platform consistent with
// the server: it fetches the initial data set, re-fetches after additions,
// applies optimistic support updates with rollback, and persists the set of
// already-supported report ids across restarts.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"lavoroonesto/api/internal/advice"
	"lavoroonesto/api/internal/report"
)

// ErrTimeout marks a report submission that exceeded its bounded wait. Kept
// distinct from other transport failures so the UI can show a
// timeout-specific message instead of a generic one.
var ErrTimeout = errors.New("request timed out")

// DefaultAddTimeout bounds the add-report round trip.
const DefaultAddTimeout = 15 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
}

// InitialData mirrors the server's initial payload.
type InitialData struct {
	Reports       report.List `json:"reports"`
	Companies     []string    `json:"companies"`
	CustomSectors []string    `json:"customSectors"`
}

// API is the HTTP transport to the repository server.
type API struct {
	baseURL    string
	httpClient *http.Client
	addTimeout time.Duration
}

// NewAPI creates a transport for the given base URL. httpClient may be nil.
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		addTimeout: DefaultAddTimeout,
	}
}

func (a *API) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return a.do(req, out)
}

func (a *API) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, out)
}

func (a *API) do(req *http.Request, out any) error {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return ErrTimeout
		}
		return fmt.Errorf("call server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// InitialData fetches the full data set.
func (a *API) InitialData(ctx context.Context) (InitialData, error) {
	var out InitialData
	if err := a.get(ctx, "/api/reports", &out); err != nil {
		return InitialData{}, err
	}
	return out, nil
}

// AddReport submits a new report. The wait is bounded; on expiry the
// distinct ErrTimeout is returned.
func (a *API) AddReport(ctx context.Context, r report.Report) error {
	ctx, cancel := context.WithTimeout(ctx, a.addTimeout)
	defer cancel()

	raw, err := report.Encode(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	body := map[string]any{"action": "addReport", "report": json.RawMessage(raw)}
	return a.post(ctx, "/api/reports", body, nil)
}

// SupportReport registers one support for a report and returns the server's
// new count.
func (a *API) SupportReport(ctx context.Context, id string) (int, error) {
	body := map[string]any{"action": "supportReport", "id": id}
	var out struct {
		SupportCount int `json:"supportCount"`
	}
	if err := a.post(ctx, "/api/reports", body, &out); err != nil {
		return 0, err
	}
	return out.SupportCount, nil
}

// DeleteReport asks the server to delete a report, passing the admin
// credential per request.
func (a *API) DeleteReport(ctx context.Context, id, adminPassword string) error {
	body := map[string]any{"action": "deleteReport", "id": id, "adminPassword": adminPassword}
	return a.post(ctx, "/api/reports", body, nil)
}

// Advice fetches reader guidance for a report. Transport failures degrade
// to the static fallback message; advice is never a hard error for the
// caller.
func (a *API) Advice(ctx context.Context, r report.Report) string {
	raw, err := report.Encode(r)
	if err != nil {
		return advice.FallbackAdvice
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := a.post(ctx, "/api/advice", map[string]any{"report": json.RawMessage(raw)}, &out); err != nil {
		return advice.FallbackAdvice
	}
	if strings.TrimSpace(out.Text) == "" {
		return advice.FallbackAdvice
	}
	return out.Text
}

// Analyze extracts tags and a summary for a description being drafted.
func (a *API) Analyze(ctx context.Context, description string) advice.Analysis {
	var out advice.Analysis
	if err := a.post(ctx, "/api/analyze", map[string]any{"description": description}, &out); err != nil {
		return advice.Analysis{
			Tags:    []string{"Analisi Fallita"},
			Summary: "Non è stato possibile analizzare il contenuto. Il servizio AI potrebbe essere non disponibile.",
		}
	}
	return out
}
