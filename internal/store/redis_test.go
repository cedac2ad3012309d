package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"lavoroonesto/api/internal/report"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func testExperience(id string) *report.Experience {
	return &report.Experience{
		Base: report.Base{
			ID:          id,
			Type:        report.KindExperience,
			CompanyName: "Acme SRL",
			Sector:      "Sviluppo software",
			CreatedAt:   time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		Title:       "Straordinari mai pagati",
		Description: "Tre mesi di straordinari non retribuiti.",
	}
}

func TestNewRedisStoreRequiresURL(t *testing.T) {
	if _, err := NewRedisStore(""); err == nil {
		t.Fatal("expected error for empty redis url, got nil")
	}
	if _, err := NewRedisStore("not-a-url"); err == nil {
		t.Fatal("expected error for malformed redis url, got nil")
	}
}

func TestPutAndGetReport(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	original := testExperience("exp-1")

	if err := store.PutReport(ctx, original); err != nil {
		t.Fatalf("PutReport failed: %v", err)
	}

	got, err := store.GetReport(ctx, "exp-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	exp, ok := got.(*report.Experience)
	if !ok {
		t.Fatalf("expected *Experience, got %T", got)
	}
	if exp.Title != original.Title {
		t.Errorf("expected title %q, got %q", original.Title, exp.Title)
	}
	if !exp.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("createdAt changed across storage: %v vs %v", exp.CreatedAt, original.CreatedAt)
	}
}

func TestGetReportNotFound(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	_, err := store.GetReport(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListReports(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.PutReport(ctx, testExperience("exp-1")); err != nil {
		t.Fatalf("PutReport failed: %v", err)
	}
	if err := store.PutReport(ctx, testExperience("exp-2")); err != nil {
		t.Fatalf("PutReport failed: %v", err)
	}

	// An unrelated key must not leak into the listing
	s.Set("other:key", "value")

	reports, err := store.ListReports(ctx)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
}

func TestListReportsEmpty(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	reports, err := store.ListReports(context.Background())
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if reports == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(reports) != 0 {
		t.Errorf("expected no reports, got %d", len(reports))
	}
}

func TestPutReportReplaces(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	r := testExperience("exp-1")
	if err := store.PutReport(ctx, r); err != nil {
		t.Fatalf("PutReport failed: %v", err)
	}

	r.SupportCount = 7
	if err := store.PutReport(ctx, r); err != nil {
		t.Fatalf("PutReport update failed: %v", err)
	}

	got, err := store.GetReport(ctx, "exp-1")
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}
	if got.Common().SupportCount != 7 {
		t.Errorf("expected supportCount 7, got %d", got.Common().SupportCount)
	}
}

func TestDeleteReportIdempotent(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.PutReport(ctx, testExperience("exp-1")); err != nil {
		t.Fatalf("PutReport failed: %v", err)
	}

	if err := store.DeleteReport(ctx, "exp-1"); err != nil {
		t.Fatalf("DeleteReport failed: %v", err)
	}
	if _, err := store.GetReport(ctx, "exp-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again must not error
	if err := store.DeleteReport(ctx, "exp-1"); err != nil {
		t.Errorf("second DeleteReport failed: %v", err)
	}
}

func TestTaxonomySets(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.AddToSet(ctx, SetCompanies, "Ditta Rossi"); err != nil {
		t.Fatalf("AddToSet failed: %v", err)
	}
	if err := store.AddToSet(ctx, SetCompanies, "Ditta Rossi"); err != nil {
		t.Fatalf("duplicate AddToSet failed: %v", err)
	}
	if err := store.AddToSet(ctx, SetSectors, "Apicoltura"); err != nil {
		t.Fatalf("AddToSet failed: %v", err)
	}

	companies, err := store.ListSet(ctx, SetCompanies)
	if err != nil {
		t.Fatalf("ListSet failed: %v", err)
	}
	if len(companies) != 1 || companies[0] != "Ditta Rossi" {
		t.Errorf("expected [Ditta Rossi], got %v", companies)
	}

	sectors, err := store.ListSet(ctx, SetSectors)
	if err != nil {
		t.Fatalf("ListSet failed: %v", err)
	}
	if len(sectors) != 1 || sectors[0] != "Apicoltura" {
		t.Errorf("expected [Apicoltura], got %v", sectors)
	}
}
