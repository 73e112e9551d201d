package survey

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dsr/dsr/internal/platform/auth"
)

// Renderer produces the downloadable artifacts for a record. Report may
// reuse a previously generated file when useCache is set and the file is
// younger than ttl.
type Renderer interface {
	Report(ctx context.Context, rec *DrugRecord, useCache bool, ttl time.Duration) (string, error)
	Export(rec *DrugRecord) (string, error)
	Cleanup(maxAge time.Duration) (int, error)
}

// Service owns record validation, orchestration and actor stamping.
type Service struct {
	repo     Repository
	renderer Renderer
	cacheTTL time.Duration
	log      zerolog.Logger
}

func NewService(repo Repository, renderer Renderer, cacheTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{repo: repo, renderer: renderer, cacheTTL: cacheTTL, log: log}
}

var idCardPattern = regexp.MustCompile(`^\d{13}$`)

func validateNew(rec *DrugRecord) error {
	if strings.TrimSpace(rec.FirstName) == "" {
		return fmt.Errorf("%w: first_name is required", ErrValidation)
	}
	if strings.TrimSpace(rec.LastName) == "" {
		return fmt.Errorf("%w: last_name is required", ErrValidation)
	}
	if !idCardPattern.MatchString(rec.IDCard) {
		return fmt.Errorf("%w: id_card must be 13 digits", ErrValidation)
	}
	return nil
}

func validateUpdate(upd *RecordUpdate) error {
	if upd.FirstName != nil && strings.TrimSpace(*upd.FirstName) == "" {
		return fmt.Errorf("%w: first_name cannot be blank", ErrValidation)
	}
	if upd.LastName != nil && strings.TrimSpace(*upd.LastName) == "" {
		return fmt.Errorf("%w: last_name cannot be blank", ErrValidation)
	}
	if upd.IDCard != nil && !idCardPattern.MatchString(*upd.IDCard) {
		return fmt.Errorf("%w: id_card must be 13 digits", ErrValidation)
	}
	return nil
}

func (s *Service) actor(ctx context.Context) string {
	if u := auth.UsernameFromContext(ctx); u != "" {
		return u
	}
	return "system"
}

func (s *Service) persistErr(op string, err error) error {
	s.log.Error().Err(err).Str("op", op).Msg("record storage failure")
	return fmt.Errorf("%w: %s", ErrPersistence, op)
}

// fillAddressParts derives the structured address columns from a raw address
// string. Explicitly supplied parts always win over parsed ones.
func fillAddressParts(rec *DrugRecord) {
	if rec.Address == nil || *rec.Address == "" {
		return
	}
	parsed := ParseThaiAddress(*rec.Address)
	set := func(dst **string, v string) {
		if (*dst == nil || **dst == "") && v != "" {
			*dst = &v
		}
	}
	set(&rec.HouseNo, parsed.HouseNo)
	set(&rec.Moo, parsed.Moo)
	set(&rec.Soi, parsed.Soi)
	set(&rec.Road, parsed.Road)
	set(&rec.Tambon, parsed.Tambon)
	set(&rec.Amphoe, parsed.Amphoe)
	set(&rec.Province, parsed.Province)
}

// Create validates the record and persists it. The record number and id are
// assigned during the insert, so validation failures never consume a number.
func (s *Service) Create(ctx context.Context, rec *DrugRecord) (*DrugRecord, error) {
	if err := validateNew(rec); err != nil {
		return nil, err
	}
	fillAddressParts(rec)
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, s.persistErr("create", err)
	}
	return s.repo.GetByID(ctx, rec.ID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*DrugRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, s.persistErr("get", err)
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*DrugRecord, int, error) {
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, s.persistErr("list", err)
	}
	return items, total, nil
}

// Update applies a partial update and records the change in the activity log
// under the requesting user.
func (s *Service) Update(ctx context.Context, id uuid.UUID, upd *RecordUpdate) (*DrugRecord, error) {
	if err := validateUpdate(upd); err != nil {
		return nil, err
	}
	if _, err := s.repo.Update(ctx, id, upd, s.actor(ctx)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, s.persistErr("update", err)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return s.persistErr("delete", err)
	}
	return nil
}

func (s *Service) Search(ctx context.Context, f SearchFilters, limit, offset int) ([]*DrugRecord, int, error) {
	items, total, err := s.repo.Search(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, s.persistErr("search", err)
	}
	return items, total, nil
}

func (s *Service) SearchArea(ctx context.Context, f AreaFilters, limit, offset int) ([]*DrugRecord, int, error) {
	items, total, err := s.repo.SearchArea(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, s.persistErr("search_area", err)
	}
	return items, total, nil
}

func (s *Service) SearchAdvanced(ctx context.Context, f AdvancedFilters, limit, offset int) ([]*DrugRecord, int, error) {
	items, total, err := s.repo.SearchAdvanced(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, s.persistErr("search_advanced", err)
	}
	return items, total, nil
}

func (s *Service) Provinces(ctx context.Context) ([]string, error) {
	values, err := s.repo.Provinces(ctx)
	if err != nil {
		return nil, s.persistErr("provinces", err)
	}
	return values, nil
}

func (s *Service) Amphoes(ctx context.Context, province string) ([]string, error) {
	values, err := s.repo.Amphoes(ctx, province)
	if err != nil {
		return nil, s.persistErr("amphoes", err)
	}
	return values, nil
}

func (s *Service) Tambons(ctx context.Context, province, amphoe string) ([]string, error) {
	values, err := s.repo.Tambons(ctx, province, amphoe)
	if err != nil {
		return nil, s.persistErr("tambons", err)
	}
	return values, nil
}

// RenderReport generates (or reuses) the form-replica document for a record
// and stamps the generation metadata back onto the row. A non-positive ttl
// falls back to the configured cache window.
func (s *Service) RenderReport(ctx context.Context, id uuid.UUID, useCache bool, ttl time.Duration) (*DrugRecord, string, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if ttl <= 0 {
		ttl = s.cacheTTL
	}
	path, err := s.renderer.Report(ctx, rec, useCache, ttl)
	if err != nil {
		s.log.Error().Err(err).Str("record_number", rec.RecordNumber).Msg("report generation failed")
		return nil, "", fmt.Errorf("%w: %s", ErrRender, rec.RecordNumber)
	}

	if err := s.repo.SetReportStatus(ctx, id, "completed", path, s.actor(ctx)); err != nil {
		return nil, "", s.persistErr("report_status", err)
	}
	return rec, path, nil
}

// BatchResult is the per-record outcome of a batch render.
type BatchResult struct {
	ID       uuid.UUID `json:"id"`
	FilePath string    `json:"file_path,omitempty"`
	Error    string    `json:"error,omitempty"`
	Success  bool      `json:"success"`
}

// RenderBatch generates documents for each id independently. One failing
// record never aborts the rest.
func (s *Service) RenderBatch(ctx context.Context, ids []uuid.UUID, useCache bool) []BatchResult {
	results := make([]BatchResult, 0, len(ids))
	for _, id := range ids {
		_, path, err := s.RenderReport(ctx, id, useCache, 0)
		if err != nil {
			results = append(results, BatchResult{ID: id, Error: err.Error()})
			continue
		}
		results = append(results, BatchResult{ID: id, FilePath: path, Success: true})
	}
	return results
}

// Export writes the spreadsheet rendition for one record.
func (s *Service) Export(ctx context.Context, id uuid.UUID) (*DrugRecord, string, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	path, err := s.renderer.Export(rec)
	if err != nil {
		s.log.Error().Err(err).Str("record_number", rec.RecordNumber).Msg("export generation failed")
		return nil, "", fmt.Errorf("%w: %s", ErrRender, rec.RecordNumber)
	}
	return rec, path, nil
}

// CleanupReports removes generated files older than maxAge and reports how
// many were deleted.
func (s *Service) CleanupReports(maxAge time.Duration) (int, error) {
	removed, err := s.renderer.Cleanup(maxAge)
	if err != nil {
		s.log.Error().Err(err).Msg("report cleanup failed")
		return removed, fmt.Errorf("%w: cleanup", ErrRender)
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("stale reports removed")
	}
	return removed, nil
}
