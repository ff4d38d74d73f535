package pattern

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PublishRecord is one published post's pattern metadata. Records are
// written exactly once at publish time and never mutated.
type PublishRecord struct {
	Timestamp     time.Time `json:"ts"`
	PostID        string    `json:"postId,omitempty"`
	URL           string    `json:"url,omitempty"`
	Title         string    `json:"title"`
	TitleType     TitleType `json:"titleType"`
	Topic         string    `json:"topic"`
	StructureType string    `json:"structureType"`
	SectionKeys   []string  `json:"sectionKeys"`
	H2Count       int       `json:"h2Count"`
	HasTable      bool      `json:"hasTable"`
	HasFaq        bool      `json:"hasFaq"`
	Category      string    `json:"category"`
}

// Store is the append-only publish-pattern history, persisted as one JSON
// record per line. The file is human-inspectable and loadable without an
// index; a crash mid-append cannot corrupt previously written lines.
type Store struct {
	path string
}

// NewStore creates a Store backed by the JSONL file at path. The file is
// created lazily on first append.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the history file location.
func (s *Store) Path() string {
	return s.path
}

// Append persists one record in insertion order. The record is written as a
// single line in one write call so a mid-write crash leaves prior lines
// intact.
func (s *Store) Append(record PublishRecord) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding pattern record: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("appending pattern record: %w", err)
	}
	return nil
}

// ReadRecent returns up to limit records, most recent first. When category
// is non-empty only matching records count toward the limit. A missing or
// empty history file yields an empty slice; unparseable lines are skipped
// with a warning rather than failing the read.
func (s *Store) ReadRecent(category string, limit int) ([]PublishRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	var records []PublishRecord
	for i := len(lines) - 1; i >= 0 && len(records) < limit; i-- {
		var r PublishRecord
		if err := json.Unmarshal([]byte(lines[i]), &r); err != nil {
			slog.Warn("skipping corrupted pattern record", "line", i+1, "error", err)
			continue
		}
		if category != "" && r.Category != category {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

// RecordPublished builds a PublishRecord from a publish outcome and appends
// it to the history. Missing structure metadata is recovered from the body.
// Failures are logged and swallowed: recording must never fail an already
// successful publish.
func (s *Store) RecordPublished(title, topic, content, url, postID, category string, structureType string, sectionKeys []string) {
	derived := SummarizeContentStructure(content, topic)

	if structureType == "" {
		structureType = derived.StructureType
	}
	if len(sectionKeys) == 0 {
		sectionKeys = derived.SectionKeys
	}
	if category == "" {
		category = "unknown"
	}

	record := PublishRecord{
		Timestamp:     time.Now().UTC(),
		PostID:        postID,
		URL:           url,
		Title:         title,
		TitleType:     ClassifyTitle(title),
		Topic:         topic,
		StructureType: structureType,
		SectionKeys:   sectionKeys,
		H2Count:       derived.H2Count,
		HasTable:      derived.HasTable,
		HasFaq:        derived.HasFaq,
		Category:      category,
	}

	if err := s.Append(record); err != nil {
		slog.Warn("failed to record publish pattern", "title", title, "error", err)
		return
	}

	slog.Info("recorded publish pattern",
		"title", record.Title,
		"titleType", record.TitleType,
		"structureType", record.StructureType,
		"category", record.Category,
	)
}
