package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"lavoroonesto/api/internal/config"
	"lavoroonesto/api/internal/report"
	"lavoroonesto/api/internal/taxonomy"
	"lavoroonesto/api/internal/util"
)

// State is the lifecycle of the local cache.
type State int

const (
	StateLoading State = iota
	StateReady
	StateError
)

// patch is a speculative local change paired with its inverse. The inverse
// is applied only when the server rejects the change.
type patch struct {
	apply   func()
	inverse func()
}

// Synchronizer holds the client-side view of reports and taxonomies and
// keeps it consistent with the server: refetch-after-add, optimistic
// support with rollback, admin-gated delete.
type Synchronizer struct {
	api            *API
	supportedStore *SupportedSet

	mu            sync.Mutex
	state         State
	lastErr       error
	reports       []report.Report
	companies     []string
	sectors       []string
	supported     map[string]struct{}
	adminPassword string
}

// NewSynchronizer builds a synchronizer in the Loading state. The persisted
// supported-id set is read eagerly so support decisions never need a disk
// read.
func NewSynchronizer(api *API, supported *SupportedSet) (*Synchronizer, error) {
	ids, err := supported.All()
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &Synchronizer{
		api:            api,
		supportedStore: supported,
		state:          StateLoading,
		supported:      set,
	}, nil
}

// Open builds a synchronizer from configuration: transport against
// cfg.ClientAPIURL, supported set at cfg.ClientStateDB.
func Open(cfg config.Config) (*Synchronizer, error) {
	set, err := OpenSupportedSet(cfg.ClientStateDB)
	if err != nil {
		return nil, err
	}
	return NewSynchronizer(NewAPI(cfg.ClientAPIURL, nil), set)
}

// Load fetches the full data set and transitions Loading -> Ready, or
// -> Error on failure. There is no automatic retry; callers decide.
func (s *Synchronizer) Load(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	data, err := s.api.InitialData(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateError
		s.lastErr = err
		s.mu.Unlock()
		return err
	}

	reports := []report.Report(data.Reports)
	report.SortNewestFirst(reports)

	s.mu.Lock()
	s.reports = reports
	s.companies = taxonomy.Resolve(taxonomy.TopCompanies(), data.Companies)
	s.sectors = taxonomy.Resolve(taxonomy.Sectors(), data.CustomSectors)
	s.state = StateReady
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// State returns the cache state and, in StateError, the causing error.
func (s *Synchronizer) State() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.lastErr
}

// Reports returns a copy of the cached reports, newest first.
func (s *Synchronizer) Reports() []report.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]report.Report(nil), s.reports...)
}

// Companies returns the merged seed + user-contributed company list.
func (s *Synchronizer) Companies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.companies...)
}

// Sectors returns the merged seed + user-contributed sector list.
func (s *Synchronizer) Sectors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sectors...)
}

// HasSupported reports whether this client already supported the report.
func (s *Synchronizer) HasSupported(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.supported[id]
	return ok
}

// AddReport stamps a fresh id and creation time on the draft, submits it,
// then re-fetches the entire data set so the new item and any newly
// registered company or sector appear consistently. On failure the local
// cache is untouched and the caller keeps its draft.
func (s *Synchronizer) AddReport(ctx context.Context, r report.Report) error {
	if job, ok := r.(*report.JobOffer); ok && report.AttachmentOversized(job.FileDataURL) {
		return fmt.Errorf("attachment exceeds %d bytes", report.MaxAttachmentBytes)
	}

	b := r.Common()
	if b.ID == "" {
		b.ID = util.NewReportID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}

	if err := s.api.AddReport(ctx, r); err != nil {
		if errors.Is(err, ErrTimeout) {
			return fmt.Errorf("report submission timed out: %w", err)
		}
		return err
	}
	return s.Load(ctx)
}

// supportPatch builds the speculative increment for a report and its
// inverse. Caller holds the lock.
func (s *Synchronizer) supportPatch(id string) (patch, bool) {
	for _, r := range s.reports {
		if r.Common().ID != id {
			continue
		}
		b := r.Common()
		return patch{
			apply:   func() { b.SupportCount++ },
			inverse: func() { b.SupportCount-- },
		}, true
	}
	return patch{}, false
}

// Support registers one support for a report. The count increment and the
// supported marker are applied optimistically before the server call; if
// the call fails both are reversed and the error is surfaced. Reports
// already supported by this client are skipped.
func (s *Synchronizer) Support(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.supported[id]; ok {
		s.mu.Unlock()
		return nil
	}
	p, ok := s.supportPatch(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("report %s is not in the local cache", id)
	}
	p.apply()
	s.supported[id] = struct{}{}
	s.mu.Unlock()

	if err := s.supportedStore.Add(id); err != nil {
		// Marker persistence is best effort; the in-memory set still
		// prevents re-support within this session.
		log.Printf("client: persist supported id %s: %v", id, err)
	}

	count, err := s.api.SupportReport(ctx, id)
	if err != nil {
		s.mu.Lock()
		p.inverse()
		delete(s.supported, id)
		s.mu.Unlock()
		_ = s.supportedStore.Remove(id)
		return fmt.Errorf("support failed and was rolled back: %w", err)
	}

	// Confirmation: adopt the server's count, which may include supports
	// from other clients that landed in the meantime.
	s.mu.Lock()
	for _, r := range s.reports {
		if r.Common().ID == id {
			r.Common().SupportCount = count
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// SetAdminCredential stores the admin password for this session only. It is
// passed per request and never persisted.
func (s *Synchronizer) SetAdminCredential(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminPassword = password
}

// IsAdmin reports whether an admin credential is held.
func (s *Synchronizer) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adminPassword != ""
}

// Delete removes a report via the server. A 401 invalidates the local admin
// session so the caller must re-authenticate; any other failure leaves the
// cache untouched. On success the report disappears from the local view.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	password := s.adminPassword
	s.mu.Unlock()
	if password == "" {
		return errors.New("admin authentication required")
	}

	if err := s.api.DeleteReport(ctx, id, password); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == 401 {
			s.mu.Lock()
			s.adminPassword = ""
			s.mu.Unlock()
		}
		return err
	}

	s.mu.Lock()
	kept := s.reports[:0]
	for _, r := range s.reports {
		if r.Common().ID != id {
			kept = append(kept, r)
		}
	}
	s.reports = kept
	s.mu.Unlock()
	return nil
}
