package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lavoroonesto/api/internal/adminauth"
	"lavoroonesto/api/internal/advice"
	"lavoroonesto/api/internal/config"
	"lavoroonesto/api/internal/report"
	"lavoroonesto/api/internal/search"
	"lavoroonesto/api/internal/store"
	"lavoroonesto/api/internal/taxonomy"
)

// dataStore is the persistence surface the service needs. *store.RedisStore
// satisfies it; tests use a fake.
type dataStore interface {
	ListReports(ctx context.Context) ([]report.Report, error)
	GetReport(ctx context.Context, id string) (report.Report, error)
	PutReport(ctx context.Context, r report.Report) error
	DeleteReport(ctx context.Context, id string) error
	AddToSet(ctx context.Context, set, value string) error
	ListSet(ctx context.Context, set string) ([]string, error)
	Ping(ctx context.Context) error
}

// adviceGenerator is the text-generation surface. *advice.Generator
// satisfies it; tests use a fake.
type adviceGenerator interface {
	Advice(ctx context.Context, in advice.Input) string
	Analyze(ctx context.Context, description string) advice.Analysis
}

// InitialData is the full data set a client loads at startup. Companies and
// CustomSectors carry only the user-contributed entries; clients merge them
// with the seed lists.
type InitialData struct {
	Reports       []report.Report `json:"reports"`
	Companies     []string        `json:"companies"`
	CustomSectors []string        `json:"customSectors"`
}

// Service enforces validation and authorization around the store.
type Service struct {
	cfg    config.Config
	store  dataStore // nil when store credentials are absent
	admin  *adminauth.Verifier
	advice adviceGenerator // nil when no Gemini API key is configured
	search *search.Service
}

// New wires the service. redisStore and gen are optional; when nil the
// operations needing them fail with a configuration error.
func New(cfg config.Config, redisStore *store.RedisStore, admin *adminauth.Verifier, gen *advice.Generator, searchService *search.Service) *Service {
	if searchService == nil {
		searchService = search.NewService(nil)
	}
	s := &Service{
		cfg:    cfg,
		admin:  admin,
		search: searchService,
	}
	if redisStore != nil {
		s.store = redisStore
	}
	if gen != nil {
		s.advice = gen
	}
	return s
}

func (s *Service) requireStore() (dataStore, error) {
	if s.store == nil {
		return nil, errServerConfig("Server configuration error: database credentials are not set")
	}
	return s.store, nil
}

// Ping reports store reachability for the readiness probe.
func (s *Service) Ping(ctx context.Context) error {
	st, err := s.requireStore()
	if err != nil {
		return err
	}
	return st.Ping(ctx)
}

// InitialData loads every report plus the user-contributed taxonomy sets.
func (s *Service) InitialData(ctx context.Context) (InitialData, error) {
	st, err := s.requireStore()
	if err != nil {
		return InitialData{}, err
	}

	reports, err := st.ListReports(ctx)
	if err != nil {
		return InitialData{}, fmt.Errorf("list reports: %w", err)
	}
	companies, err := st.ListSet(ctx, store.SetCompanies)
	if err != nil {
		return InitialData{}, fmt.Errorf("list companies: %w", err)
	}
	sectors, err := st.ListSet(ctx, store.SetSectors)
	if err != nil {
		return InitialData{}, fmt.Errorf("list sectors: %w", err)
	}

	return InitialData{
		Reports:       reports,
		Companies:     taxonomy.Resolve(nil, companies),
		CustomSectors: taxonomy.Resolve(nil, sectors),
	}, nil
}

// AddReport validates and persists a new report, registering novel company
// and sector names into the taxonomy sets. Returns the report id.
func (s *Service) AddReport(ctx context.Context, r report.Report) (string, error) {
	st, err := s.requireStore()
	if err != nil {
		return "", err
	}

	report.Normalize(r)
	if err := r.Validate(); err != nil {
		return "", errValidation(err.Error())
	}

	if err := st.PutReport(ctx, r); err != nil {
		return "", fmt.Errorf("persist report: %w", err)
	}

	b := r.Common()
	if !taxonomy.InSeed(taxonomy.TopCompanies(), b.CompanyName) {
		if err := st.AddToSet(ctx, store.SetCompanies, b.CompanyName); err != nil {
			return "", fmt.Errorf("register company: %w", err)
		}
	}
	if b.Sector != "" && !taxonomy.InSeed(taxonomy.Sectors(), b.Sector) {
		if err := st.AddToSet(ctx, store.SetSectors, b.Sector); err != nil {
			return "", fmt.Errorf("register sector: %w", err)
		}
	}

	s.search.IndexReport(search.RecordFromReport(r))
	return b.ID, nil
}

// SupportReport increments a report's support counter by exactly one and
// returns the new count.
//
// Read-modify-write without locking: concurrent supports on the same report
// can race and under-count. Accepted; the counter is advisory.
func (s *Service) SupportReport(ctx context.Context, id string) (int, error) {
	st, err := s.requireStore()
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(id) == "" {
		return 0, errValidation("id is required")
	}

	r, err := st.GetReport(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return 0, errNotFound("Report not found")
	}
	if err != nil {
		return 0, fmt.Errorf("load report: %w", err)
	}

	r.Common().SupportCount++
	if err := st.PutReport(ctx, r); err != nil {
		return 0, fmt.Errorf("persist support count: %w", err)
	}

	s.search.IndexReport(search.RecordFromReport(r))
	return r.Common().SupportCount, nil
}

// DeleteReport hard-deletes a report after checking the admin credential.
// No tombstone and no audit trail are kept.
func (s *Service) DeleteReport(ctx context.Context, id, adminPassword string) error {
	st, err := s.requireStore()
	if err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return errValidation("id is required")
	}

	switch err := s.admin.Verify(adminPassword); {
	case errors.Is(err, adminauth.ErrNotConfigured):
		return errServerConfig("Server configuration error: admin password not set")
	case errors.Is(err, adminauth.ErrMismatch):
		return errUnauthorized()
	case err != nil:
		return fmt.Errorf("verify admin credential: %w", err)
	}

	if err := st.DeleteReport(ctx, id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	s.search.DeleteReport(id)
	return nil
}

// Advice generates reader guidance for a report. Upstream failure degrades
// to a fallback message inside the generator; only a missing API key is an
// error here.
func (s *Service) Advice(ctx context.Context, r report.Report) (string, error) {
	if s.advice == nil {
		return "", errServerConfig("Server configuration error: text generation API key not set")
	}

	in := advice.Input{
		CompanyName: r.Common().CompanyName,
		Sector:      r.Common().Sector,
	}
	switch v := r.(type) {
	case *report.Experience:
		in.Title = v.Title
		in.Description = v.Description
	case *report.JobOffer:
		in.Title = v.JobTitle
		in.Description = v.Description
	}

	return s.advice.Advice(ctx, in), nil
}

// Analyze extracts tags and a summary from a report description.
func (s *Service) Analyze(ctx context.Context, description string) (advice.Analysis, error) {
	if s.advice == nil {
		return advice.Analysis{}, errServerConfig("Server configuration error: text generation API key not set")
	}
	if strings.TrimSpace(description) == "" {
		return advice.Analysis{}, errValidation("description is required")
	}
	return s.advice.Analyze(ctx, description), nil
}

// Search queries the report index.
func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

// Bootstrap reindexes the stored reports into the search backend. Failures
// only log; the API serves without search.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.store == nil || !s.search.Enabled() {
		return nil
	}
	reports, err := s.store.ListReports(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap reindex: %w", err)
	}
	records := make([]search.Record, 0, len(reports))
	for _, r := range reports {
		records = append(records, search.RecordFromReport(r))
	}
	s.search.ReindexAll(records)
	return nil
}
