package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"lavoroonesto/api/internal/report"
	"lavoroonesto/api/internal/taxonomy"
)

// fakeServer is a minimal in-memory rendition of the report API.
type fakeServer struct {
	mu          sync.Mutex
	reports     []report.Report
	sectors     []string
	failSupport bool
	addDelay    time.Duration
}

func (f *fakeServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if r.Method == http.MethodGet && r.URL.Path == "/api/reports" {
			payload := map[string]any{
				"reports":       f.reports,
				"companies":     []string{},
				"customSectors": f.sectors,
			}
			json.NewEncoder(w).Encode(payload)
			return
		}

		if r.Method == http.MethodPost && r.URL.Path == "/api/reports" {
			var body struct {
				Action        string          `json:"action"`
				Report        json.RawMessage `json:"report"`
				ID            string          `json:"id"`
				AdminPassword string          `json:"adminPassword"`
			}
			json.NewDecoder(r.Body).Decode(&body)

			switch body.Action {
			case "addReport":
				if f.addDelay > 0 {
					time.Sleep(f.addDelay)
				}
				rep, err := report.Decode(body.Report)
				if err != nil {
					w.WriteHeader(http.StatusBadRequest)
					json.NewEncoder(w).Encode(map[string]any{"code": "VALIDATION_ERROR", "error": err.Error()})
					return
				}
				f.reports = append(f.reports, rep)
				if s := rep.Common().Sector; s != "" && !taxonomy.InSeed(taxonomy.Sectors(), s) {
					f.sectors = append(f.sectors, s)
				}
				json.NewEncoder(w).Encode(map[string]any{"success": true, "id": rep.Common().ID})

			case "supportReport":
				if f.failSupport {
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]any{"code": "SERVER_ERROR", "error": "Server error"})
					return
				}
				for _, rep := range f.reports {
					if rep.Common().ID == body.ID {
						rep.Common().SupportCount++
						json.NewEncoder(w).Encode(map[string]any{"success": true, "supportCount": rep.Common().SupportCount})
						return
					}
				}
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]any{"code": "NOT_FOUND", "error": "Report not found"})

			case "deleteReport":
				if body.AdminPassword != "segreto" {
					w.WriteHeader(http.StatusUnauthorized)
					json.NewEncoder(w).Encode(map[string]any{"code": "UNAUTHORIZED", "error": "Unauthorized: incorrect admin password"})
					return
				}
				kept := f.reports[:0]
				for _, rep := range f.reports {
					if rep.Common().ID != body.ID {
						kept = append(kept, rep)
					}
				}
				f.reports = kept
				json.NewEncoder(w).Encode(map[string]any{"success": true})
			}
			return
		}

		w.WriteHeader(http.StatusNotFound)
	})
}

func serverExperience(id string, supportCount int) *report.Experience {
	return &report.Experience{
		Base: report.Base{
			ID:           id,
			Type:         report.KindExperience,
			CompanyName:  "Ditta Rossi",
			Sector:       "Apicoltura",
			CreatedAt:    time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
			SupportCount: supportCount,
		},
		Title:       "Straordinari mai pagati",
		Description: "Tre mesi di straordinari non retribuiti.",
	}
}

func newTestSynchronizer(t *testing.T, fs *fakeServer) (*Synchronizer, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(fs.handler())
	t.Cleanup(srv.Close)

	set := openTestSet(t, filepath.Join(t.TempDir(), "state.db"))
	t.Cleanup(func() { set.Close() })

	sc, err := NewSynchronizer(NewAPI(srv.URL, srv.Client()), set)
	if err != nil {
		t.Fatalf("NewSynchronizer failed: %v", err)
	}
	return sc, srv
}

func TestLoadMergesSeedsWithServerData(t *testing.T) {
	fs := &fakeServer{
		reports: []report.Report{serverExperience("exp-1", 3)},
		sectors: []string{"Apicoltura"},
	}
	sc, _ := newTestSynchronizer(t, fs)

	if state, _ := sc.State(); state != StateLoading {
		t.Fatalf("expected StateLoading before Load, got %v", state)
	}
	if err := sc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state, _ := sc.State(); state != StateReady {
		t.Fatalf("expected StateReady, got %v", state)
	}

	reports := sc.Reports()
	if len(reports) != 1 || reports[0].Common().ID != "exp-1" {
		t.Fatalf("expected exp-1 in cache, got %+v", reports)
	}

	sectors := sc.Sectors()
	found := false
	for _, s := range sectors {
		if s == "Apicoltura" {
			found = true
		}
	}
	if !found {
		t.Error("expected custom sector merged into seed list")
	}
	if len(sectors) <= len(taxonomy.Sectors()) {
		t.Errorf("expected seeds plus custom entries, got %d sectors", len(sectors))
	}
}

func TestLoadFailureEntersErrorState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	set := openTestSet(t, filepath.Join(t.TempDir(), "state.db"))
	t.Cleanup(func() { set.Close() })
	sc, err := NewSynchronizer(NewAPI(srv.URL, srv.Client()), set)
	if err != nil {
		t.Fatalf("NewSynchronizer failed: %v", err)
	}

	if err := sc.Load(context.Background()); err == nil {
		t.Fatal("expected Load to fail")
	}
	state, lastErr := sc.State()
	if state != StateError {
		t.Fatalf("expected StateError, got %v", state)
	}
	if lastErr == nil {
		t.Error("expected the causing error to be retained")
	}
}

func TestSupportAppliesOptimisticallyAndConfirms(t *testing.T) {
	fs := &fakeServer{reports: []report.Report{serverExperience("exp-1", 5)}}
	sc, _ := newTestSynchronizer(t, fs)
	if err := sc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := sc.Support(context.Background(), "exp-1"); err != nil {
		t.Fatalf("Support failed: %v", err)
	}

	reports := sc.Reports()
	if reports[0].Common().SupportCount != 6 {
		t.Errorf("expected count 6, got %d", reports[0].Common().SupportCount)
	}
	if !sc.HasSupported("exp-1") {
		t.Error("expected exp-1 marked as supported")
	}
}

func TestSupportRollsBackOnServerFailure(t *testing.T) {
	fs := &fakeServer{
		reports:     []report.Report{serverExperience("exp-1", 5)},
		failSupport: true,
	}
	sc, _ := newTestSynchronizer(t, fs)
	if err := sc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := sc.Support(context.Background(), "exp-1"); err == nil {
		t.Fatal("expected Support to fail")
	}

	reports := sc.Reports()
	if reports[0].Common().SupportCount != 5 {
		t.Errorf("expected count rolled back to 5, got %d", reports[0].Common().SupportCount)
	}
	if sc.HasSupported("exp-1") {
		t.Error("expected supported marker rolled back")
	}
}

func TestSupportSkipsAlreadySupported(t *testing.T) {
	fs := &fakeServer{reports: []report.Report{serverExperience("exp-1", 5)}}
	sc, _ := newTestSynchronizer(t, fs)
	if err := sc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := sc.Support(context.Background(), "exp-1"); err != nil {
		t.Fatalf("first Support failed: %v", err)
	}
	if err := sc.Support(context.Background(), "exp-1"); err != nil {
		t.Fatalf("second Support failed: %v", err)
	}

	if got := sc.Reports()[0].Common().SupportCount; got != 6 {
		t.Errorf("expected count to stay 6, got %d", got)
	}
}

func TestSupportedSetSurvivesNewSynchronizer(t *testing.T) {
	fs := &fakeServer{reports: []report.Report{serverExperience("exp-1", 5)}}
	srv := httptest.NewServer(fs.handler())
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "state.db")
	set := openTestSet(t, path)
	sc, err := NewSynchronizer(NewAPI(srv.URL, srv.Client()), set)
	if err != nil {
		t.Fatalf("NewSynchronizer failed: %v", err)
	}
	if err := sc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := sc.Support(context.Background(), "exp-1"); err != nil {
		t.Fatalf("Support failed: %v", err)
	}
	set.Close()

	reopened := openTestSet(t, path)
	t.Cleanup(func() { reopened.Close() })
	restarted, err := NewSynchronizer(NewAPI(srv.URL, srv.Client()), reopened)
	if err != nil {
		t.Fatalf("NewSynchronizer failed: %v", err)
	}
	if !restarted.HasSupported("exp-1") {
		t.Error("expected supported marker to survive a restart")
	}
}

func TestAddReportRefetches(t *testing.T) {
	fs := &fakeServer{}
	sc, _ := newTestSynchronizer(t, fs)
	if err := sc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	newReport := serverExperience("exp-2", 0)
	newReport.Sector = "Apicoltura urbana"
	if err := sc.AddReport(context.Background(), newReport); err != nil {
		t.Fatalf("AddReport failed: %v", err)
	}

	reports := sc.Reports()
	if len(reports) != 1 || reports[0].Common().ID != "exp-2" {
		t.Fatalf("expected refetched report, got %+v", reports)
	}

	found := false
	for _, s := range sc.Sectors() {
		if s == "Apicoltura urbana" {
			found = true
		}
	}
	if !found {
		t.Error("expected the new custom sector after refetch")
	}
}

func TestAddReportRejectsOversizedAttachment(t *testing.T) {
	fs := &fakeServer{}
	sc, _ := newTestSynchronizer(t, fs)
	if err := sc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	job := &report.JobOffer{
		Base: report.Base{
			Type:        report.KindJobOffer,
			CompanyName: "Acme SRL",
		},
		JobTitle:    "Sviluppatore",
		Description: "Annuncio.",
		FileDataURL: "data:application/pdf;base64," + strings.Repeat("A", (report.MaxAttachmentBytes/3+2)*4),
		FileName:    "offerta.pdf",
	}

	if err := sc.AddReport(context.Background(), job); err == nil {
		t.Fatal("expected oversized attachment to be rejected")
	}
	if len(fs.reports) != 0 {
		t.Error("oversized report must not reach the server")
	}
}

func TestAddReportTimeout(t *testing.T) {
	fs := &fakeServer{addDelay: 200 * time.Millisecond}
	sc, _ := newTestSynchronizer(t, fs)
	sc.api.addTimeout = 20 * time.Millisecond

	if err := sc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err := sc.AddReport(context.Background(), serverExperience("exp-9", 0))
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestDeleteRequiresAdminCredential(t *testing.T) {
	fs := &fakeServer{reports: []report.Report{serverExperience("exp-1", 0)}}
	sc, _ := newTestSynchronizer(t, fs)
	if err := sc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := sc.Delete(context.Background(), "exp-1"); err == nil {
		t.Fatal("expected error without admin credential")
	}
}

func TestDeleteUnauthorizedInvalidatesAdminSession(t *testing.T) {
	fs := &fakeServer{reports: []report.Report{serverExperience("exp-1", 0)}}
	sc, _ := newTestSynchronizer(t, fs)
	if err := sc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sc.SetAdminCredential("sbagliato")
	if !sc.IsAdmin() {
		t.Fatal("expected admin session")
	}

	if err := sc.Delete(context.Background(), "exp-1"); err == nil {
		t.Fatal("expected unauthorized delete to fail")
	}
	if sc.IsAdmin() {
		t.Error("expected admin session invalidated after 401")
	}
	if len(sc.Reports()) != 1 {
		t.Error("expected report to survive the failed delete")
	}
}

func TestDeleteRemovesReportLocally(t *testing.T) {
	fs := &fakeServer{reports: []report.Report{serverExperience("exp-1", 0)}}
	sc, _ := newTestSynchronizer(t, fs)
	if err := sc.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sc.SetAdminCredential("segreto")
	if err := sc.Delete(context.Background(), "exp-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(sc.Reports()) != 0 {
		t.Errorf("expected empty cache, got %+v", sc.Reports())
	}
	if !sc.IsAdmin() {
		t.Error("expected admin session to survive a successful delete")
	}
}
