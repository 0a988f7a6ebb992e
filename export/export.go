package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/scipunch/secfeed/model"
)

const (
	// PublishedLayout is how publication times appear in CSV exports
	PublishedLayout = "2006-01-02 15:04"
	fileStampLayout = "20060102_150405"
)

var ErrNothingToExport = errors.New("no articles to export")

var csvHeader = []string{"title", "url", "summary", "published", "source"}

// WriteCSV writes the articles with a header row, one article per row
func WriteCSV(w io.Writer, articles []model.Article) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header with %w", err)
	}
	for _, a := range articles {
		if err := cw.Write([]string{a.Title, a.URL, a.Summary, FormatPublished(a), a.Source}); err != nil {
			return fmt.Errorf("failed to write CSV row for %s with %w", a.URL, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatPublished renders the publication time, or "" when unknown
func FormatPublished(a model.Article) string {
	if !a.HasPublished() {
		return ""
	}
	return a.PublishedAt.Format(PublishedLayout)
}

type document struct {
	Metadata metadata      `json:"metadata"`
	Articles []jsonArticle `json:"articles"`
}

type metadata struct {
	RunID         string                  `json:"run_id"`
	ScrapedAt     time.Time               `json:"scraped_at"`
	Mode          model.Mode              `json:"mode"`
	TotalArticles int                     `json:"total_articles"`
	Duplicates    int                     `json:"duplicates"`
	Cancelled     bool                    `json:"cancelled"`
	Sources       map[string]sourceReport `json:"sources"`
}

type sourceReport struct {
	Status    model.Status `json:"status"`
	Articles  int          `json:"articles"`
	ElapsedMS int64        `json:"elapsed_ms"`
	Error     string       `json:"error,omitempty"`
}

type jsonArticle struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Summary   string `json:"summary"`
	Published string `json:"published"`
	Source    string `json:"source"`
}

// WriteJSON writes the run's deduplicated articles with run metadata
func WriteJSON(w io.Writer, run *model.AggregationRun) error {
	doc := document{
		Metadata: metadata{
			RunID:         run.ID,
			ScrapedAt:     run.FinishedAt,
			Mode:          run.Mode,
			TotalArticles: len(run.Articles),
			Duplicates:    run.DuplicateCount,
			Cancelled:     run.Cancelled,
			Sources:       make(map[string]sourceReport, len(run.PerSource)),
		},
		Articles: make([]jsonArticle, 0, len(run.Articles)),
	}
	for name, res := range run.PerSource {
		rep := sourceReport{Status: res.Status, Articles: len(res.Articles), ElapsedMS: res.Elapsed.Milliseconds()}
		if res.Err != nil {
			rep.Error = res.Err.Error()
		}
		doc.Metadata.Sources[name] = rep
	}
	for _, a := range run.Articles {
		published := ""
		if a.HasPublished() {
			published = a.PublishedAt.Format(time.RFC3339)
		}
		doc.Articles = append(doc.Articles, jsonArticle{
			Title:     a.Title,
			URL:       a.URL,
			Summary:   a.Summary,
			Published: published,
			Source:    a.Source,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode run %s with %w", run.ID, err)
	}
	return nil
}

// FileName returns "<prefix>_YYYYMMDD_HHMMSS.<ext>"
func FileName(prefix, ext string, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, at.Format(fileStampLayout), ext)
}

// SaveRun writes the run in every requested format ("csv", "json") under
// dir and returns the created paths
func SaveRun(dir, prefix string, formats []string, run *model.AggregationRun, now time.Time) ([]string, error) {
	if run == nil || len(run.Articles) == 0 {
		return nil, ErrNothingToExport
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create export directory at '%s' with %w", dir, err)
	}

	var paths []string
	for _, format := range formats {
		var write func(io.Writer) error
		switch format {
		case "csv":
			write = func(w io.Writer) error { return WriteCSV(w, run.Articles) }
		case "json":
			write = func(w io.Writer) error { return WriteJSON(w, run) }
		default:
			return paths, fmt.Errorf("unknown export format %q", format)
		}

		path := filepath.Join(dir, FileName(prefix, format, now))
		if err := writeFile(path, write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create '%s' with %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close '%s' with %w", path, err)
	}
	return nil
}
