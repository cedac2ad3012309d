// Package report defines the report domain model shared by the server and
// the client: a tagged union over experience reports and job offer reports,
// with an envelope JSON codec keyed on the "type" field.
package report

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind discriminates the two report variants on the wire.
type Kind string

const (
	KindExperience Kind = "EXPERIENCE"
	KindJobOffer   Kind = "JOB_OFFER"
)

// AnonymousAuthor replaces the author name on anonymous experience reports.
const AnonymousAuthor = "Anonimo"

// MaxAttachmentBytes caps the decoded size of a job offer attachment.
// Enforced client-side before the data URI is embedded in the report.
const MaxAttachmentBytes = 5 * 1024 * 1024

// Base holds the fields common to both variants. CreatedAt is serialized as
// RFC 3339 text and must parse back to an equal instant.
type Base struct {
	ID           string    `json:"id"`
	Type         Kind      `json:"type"`
	CompanyName  string    `json:"companyName"`
	Sector       string    `json:"sector,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	SupportCount int       `json:"supportCount"`
	Tags         []string  `json:"tags,omitempty"`
}

// Experience describes an unfair workplace experience.
type Experience struct {
	Base
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	IsAnonymous    bool     `json:"isAnonymous"`
	AuthorName     string   `json:"authorName,omitempty"`
	UnkeptPromises []string `json:"unkeptPromises,omitempty"`
}

// JobOffer describes a reported job posting.
type JobOffer struct {
	Base
	JobTitle     string   `json:"jobTitle"`
	Description  string   `json:"description"`
	FileDataURL  string   `json:"fileDataUrl,omitempty"`
	FileName     string   `json:"fileName,omitempty"`
	OfferLink    string   `json:"offerLink,omitempty"`
	RALIndicated bool     `json:"ralIndicated"`
	RALAmount    *float64 `json:"ralAmount,omitempty"`
}

// Report is the tagged union. The two implementations are *Experience and
// *JobOffer; consumers dispatch with a type switch.
type Report interface {
	Kind() Kind
	Common() *Base
	Validate() error
}

func (r *Experience) Kind() Kind    { return KindExperience }
func (r *Experience) Common() *Base { return &r.Base }

func (r *JobOffer) Kind() Kind    { return KindJobOffer }
func (r *JobOffer) Common() *Base { return &r.Base }

func (b *Base) validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(b.CompanyName) == "" {
		return errors.New("companyName is required")
	}
	if b.SupportCount < 0 {
		return errors.New("supportCount must not be negative")
	}
	if b.CreatedAt.IsZero() {
		return errors.New("createdAt is required")
	}
	return nil
}

// Validate checks the invariants a stored experience report must satisfy.
func (r *Experience) Validate() error {
	if err := r.Base.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		return errors.New("description is required")
	}
	if strings.TrimSpace(r.Sector) == "" {
		return errors.New("sector is required")
	}
	return nil
}

// Validate checks the invariants a stored job offer report must satisfy.
func (r *JobOffer) Validate() error {
	if err := r.Base.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.JobTitle) == "" {
		return errors.New("jobTitle is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		return errors.New("description is required")
	}
	if r.FileDataURL == "" && r.OfferLink == "" {
		return errors.New("an attachment or an offer link is required")
	}
	if r.RALIndicated && r.RALAmount == nil {
		return errors.New("ralAmount is required when ralIndicated is set")
	}
	return nil
}

// Normalize trims free-text fields, deduplicates tags, pins createdAt to UTC
// and enforces the anonymous-author and RAL rules. Called once on the write
// path before the report is persisted.
func Normalize(r Report) {
	b := r.Common()
	b.CompanyName = strings.TrimSpace(b.CompanyName)
	b.Sector = strings.TrimSpace(b.Sector)
	b.CreatedAt = b.CreatedAt.UTC()
	b.Tags = dedupe(b.Tags)

	switch v := r.(type) {
	case *Experience:
		v.Title = strings.TrimSpace(v.Title)
		if v.IsAnonymous {
			v.AuthorName = AnonymousAuthor
		} else {
			v.AuthorName = strings.TrimSpace(v.AuthorName)
		}
	case *JobOffer:
		v.JobTitle = strings.TrimSpace(v.JobTitle)
		if !v.RALIndicated {
			v.RALAmount = nil
		}
	}
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// AttachmentOversized reports whether a base64 data URI decodes to more than
// MaxAttachmentBytes. Checked on the client before submission; the server
// trusts the stored size.
func AttachmentOversized(dataURL string) bool {
	i := strings.IndexByte(dataURL, ',')
	if i < 0 {
		return false
	}
	return base64.StdEncoding.DecodedLen(len(dataURL)-i-1) > MaxAttachmentBytes
}

// Encode serializes a report for storage or transport.
func Encode(r Report) ([]byte, error) {
	r.Common().Type = r.Kind()
	return json.Marshal(r)
}

// Decode parses a report envelope, picking the variant from the "type" field.
func Decode(data []byte) (Report, error) {
	var probe struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	switch probe.Type {
	case KindExperience:
		var r Experience
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode experience report: %w", err)
		}
		return &r, nil
	case KindJobOffer:
		var r JobOffer
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode job offer report: %w", err)
		}
		return &r, nil
	default:
		return nil, fmt.Errorf("unknown report type %q", probe.Type)
	}
}

// List is a decodable slice of reports.
type List []Report

func (l *List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(List, 0, len(raw))
	for _, item := range raw {
		r, err := Decode(item)
		if err != nil {
			return err
		}
		out = append(out, r)
	}
	*l = out
	return nil
}

// SortNewestFirst orders reports by creation time, most recent first.
// Ties keep a deterministic order by id.
func SortNewestFirst(reports []Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		a, b := reports[i].Common(), reports[j].Common()
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
