// Package render produces the downloadable artifacts for survey records: a
// form-replica PDF and a spreadsheet export, plus the freshness cache over
// the generated files.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dsr/dsr/internal/domain/survey"
)

// Service writes generated documents under a report and an export directory.
type Service struct {
	reportDir string
	exportDir string
	fontPath  string

	// writePDF is swappable in tests so cache behavior can be observed
	// without a font file.
	writePDF func(rec *survey.DrugRecord, path string) error
}

func New(reportDir, exportDir, fontPath string) (*Service, error) {
	for _, dir := range []string{reportDir, exportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	s := &Service{reportDir: reportDir, exportDir: exportDir, fontPath: fontPath}
	s.writePDF = s.renderPDF
	return s, nil
}

var bangkok = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}()

// reportFileName is deterministic per record and Bangkok calendar day, so a
// repeat request inside the cache window resolves to the same file.
func reportFileName(recordNumber string, now time.Time) string {
	return fmt.Sprintf("drug_record_%s_%s.pdf", recordNumber, now.In(bangkok).Format("20060102"))
}

// Report writes the form-replica PDF for rec and returns its path. When
// useCache is set and the file on disk is younger than ttl, the existing
// file is returned without rendering. The file appears atomically: rendering
// goes to a temp name first.
func (s *Service) Report(ctx context.Context, rec *survey.DrugRecord, useCache bool, ttl time.Duration) (string, error) {
	path := filepath.Join(s.reportDir, reportFileName(rec.RecordNumber, time.Now()))
	if useCache && fresh(path, ttl) {
		return path, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp := path + ".tmp"
	if err := s.writePDF(rec, tmp); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("render %s: %w", rec.RecordNumber, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return path, nil
}

// Export writes the spreadsheet rendition for rec and returns its path.
func (s *Service) Export(rec *survey.DrugRecord) (string, error) {
	path := filepath.Join(s.exportDir, fmt.Sprintf("drug_record_%s.xlsx", rec.RecordNumber))
	if err := s.writeExcel(rec, path); err != nil {
		return "", fmt.Errorf("export %s: %w", rec.RecordNumber, err)
	}
	return path, nil
}

// Cleanup removes generated files older than maxAge from both output
// directories and returns the number removed.
func (s *Service) Cleanup(maxAge time.Duration) (int, error) {
	removed := 0
	for _, dir := range []string{s.reportDir, s.exportDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if time.Since(info.ModTime()) > maxAge {
				if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
					removed++
				}
			}
		}
	}
	return removed, nil
}
