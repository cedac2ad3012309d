package search

import "log"

// Service fronts the optional Meilisearch backend. When Meilisearch is not
// configured or unhealthy, searches return empty results and indexing is a
// no-op; report reads and writes never depend on it.
type Service struct {
	meili *Meili
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili) *Service {
	return &Service{meili: meili}
}

// Enabled reports whether a search backend is configured.
func (s *Service) Enabled() bool {
	return s.meili != nil
}

// Search executes a report search if the backend is healthy.
func (s *Service) Search(q Query) Response {
	if s.meili == nil || !s.meili.Healthy() {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.meili.Search(q)
	if err != nil {
		log.Printf("search: meilisearch error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	if results == nil {
		results = []Result{}
	}
	return Response{Results: results, Total: total, Query: q.Text}
}

// IndexReport indexes a report (fire-and-forget).
func (s *Service) IndexReport(rec Record) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexReport(rec); err != nil {
			log.Printf("search: index report %s: %v", rec.ID, err)
		}
	}()
}

// DeleteReport removes a report from the index (fire-and-forget).
func (s *Service) DeleteReport(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteReport(id); err != nil {
			log.Printf("search: delete report %s: %v", id, err)
		}
	}()
}

// ReindexAll pushes the full report set into the index. Called at startup
// so a fresh Meilisearch instance catches up with the store.
func (s *Service) ReindexAll(records []Record) {
	if s.meili == nil || !s.meili.Healthy() || len(records) == 0 {
		return
	}
	if err := s.meili.IndexReports(records); err != nil {
		log.Printf("search: reindex reports: %v", err)
	}
}
