package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/calermo/seo-manager/internal/service"
	"github.com/calermo/seo-manager/pkg/file"
	"github.com/calermo/seo-manager/pkg/log"
)

// Importer bulk-loads catalog records from CSV or JSON files. Each row goes
// through the same creation path as the dashboard, so duplicate checks and
// the v0 version ride-alongs apply identically.
type Importer struct {
	svc *service.Service
}

func New(svc *service.Service) *Importer {
	return &Importer{svc: svc}
}

// Record is one row of an import file.
type Record struct {
	ChannelID   string     `json:"channel_id"`
	VideoID     string     `json:"video_id"`
	Title       string     `json:"title"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Report summarizes one import run.
type Report struct {
	Source   string   `json:"source"`
	Total    int      `json:"total"`
	Created  int      `json:"created"`
	Skipped  int      `json:"skipped"`
	Failures []string `json:"failures,omitempty"`
}

// ImportFile loads one file, format picked by extension (.csv or .json).
func (im *Importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	return im.ImportRecords(ctx, path, records)
}

// ImportRecords runs already-parsed records through the creation path.
func (im *Importer) ImportRecords(ctx context.Context, source string, records []Record) (*Report, error) {
	report := &Report{Source: source, Total: len(records)}

	for _, record := range records {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		_, err := im.svc.CreateVideo(ctx, service.CreateVideoInput{
			ChannelID:   record.ChannelID,
			VideoID:     record.VideoID,
			Title:       record.Title,
			PublishedAt: record.PublishedAt,
		})
		switch {
		case err == nil:
			report.Created++
		case service.IsErrorType(err, service.ErrDuplicate):
			// Re-imports are expected; existing rows stay untouched.
			report.Skipped++
		default:
			log.Error("Import of %s failed: %v", record.VideoID, err)
			report.Failures = append(report.Failures,
				fmt.Sprintf("%s: %v", record.VideoID, err))
		}
	}

	log.Info("Imported %s: %d created, %d skipped, %d failed",
		source, report.Created, report.Skipped, len(report.Failures))
	return report, nil
}

// ImportDir imports every importable file under dir modified after the
// given time, writing a report next to each input.
func (im *Importer) ImportDir(ctx context.Context, dir string, since time.Time) ([]*Report, error) {
	paths, err := file.FindRecentAfter(dir, since)
	if err != nil {
		return nil, fmt.Errorf("scan import dir: %w", err)
	}

	var reports []*Report
	for _, path := range paths {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv", ".json":
		default:
			continue
		}
		if strings.HasSuffix(path, ".report.json") {
			continue
		}

		report, err := im.ImportFile(ctx, path)
		if err != nil {
			return reports, err
		}
		if err := writeReport(path, report); err != nil {
			log.Warn("Writing import report for %s failed: %v", path, err)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func writeReport(sourcePath string, report *Report) error {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	reportPath := file.ReplaceExt(sourcePath, ".report.json")
	return os.WriteFile(reportPath, payload, 0o644)
}

func readRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(f)
	case ".json":
		return readJSON(f)
	default:
		return nil, fmt.Errorf("unsupported import format %q", filepath.Ext(path))
	}
}

func readJSON(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("parse json import: %w", err)
	}
	return records, nil
}

// readCSV expects a header row; recognized columns are channel_id, video_id,
// title and published_at (RFC 3339). Unknown columns are ignored.
func readCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index["video_id"]; !ok {
		return nil, fmt.Errorf("csv import needs a video_id column")
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		record := Record{
			ChannelID: field(row, "channel_id"),
			VideoID:   field(row, "video_id"),
			Title:     field(row, "title"),
		}
		if raw := field(row, "published_at"); raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				record.PublishedAt = &t
			}
		}
		records = append(records, record)
	}
	return records, nil
}
