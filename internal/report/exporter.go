// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package report writes normalized submissions to CSV, JSON and a
// self-contained HTML page.
package report

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bcem/submissions/internal/models"
)

const (
	// FilePrefix starts every artifact name.
	FilePrefix = "UserSubmissions_"

	timestampLayout = "20060102_150405"
)

// ExportError reports a single artifact that could not be written. Other
// artifacts are unaffected.
type ExportError struct {
	Artifact string
	Err      error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Artifact, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// Document is the JSON artifact and the data behind the HTML page.
type Document struct {
	ReportID    string                   `json:"reportId"`
	GeneratedAt string                   `json:"generatedAt"`
	Filter      string                   `json:"filter"`
	Partial     bool                     `json:"partial"`
	Count       int                      `json:"count"`
	Records     []models.CanonicalRecord `json:"records"`
}

// Artifacts lists what an export produced.
type Artifacts struct {
	ReportID string
	Paths    []string
}

// Exporter writes report artifacts into a directory.
type Exporter struct {
	dir   string
	html  bool
	now   func() time.Time
	newID func() string
}

// NewExporter creates an exporter writing to dir. CSV and JSON are always
// written; the HTML page only when includeHTML is set.
func NewExporter(dir string, includeHTML bool) *Exporter {
	return &Exporter{
		dir:   dir,
		html:  includeHTML,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

type artifact struct {
	name  string
	ext   string
	write func(w io.Writer, doc *Document) error
}

// Export writes every artifact concurrently. Failures are returned as
// joined *ExportError values alongside the artifacts that did succeed.
// Records are written in the order given.
func (e *Exporter) Export(ctx context.Context, filter string, partial bool, records []models.CanonicalRecord) (*Artifacts, error) {
	now := e.now()
	if records == nil {
		records = []models.CanonicalRecord{}
	}
	doc := &Document{
		ReportID:    e.newID(),
		GeneratedAt: now.UTC().Format(time.RFC3339),
		Filter:      filter,
		Partial:     partial,
		Count:       len(records),
		Records:     records,
	}
	out := &Artifacts{ReportID: doc.ReportID}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return out, &ExportError{Artifact: "output directory", Err: err}
	}

	artifacts := []artifact{
		{name: "csv", ext: ".csv", write: writeCSV},
		{name: "json", ext: ".json", write: writeJSON},
	}
	if e.html {
		artifacts = append(artifacts, artifact{name: "html", ext: ".html", write: writeHTML})
	}

	base := FilePrefix + now.Format(timestampLayout)
	paths := make([]string, len(artifacts))
	errs := make([]error, len(artifacts))

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range artifacts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(e.dir, base+a.ext)
			if err := writeFile(path, func(w io.Writer) error { return a.write(w, doc) }); err != nil {
				slog.Warn("artifact export failed", "artifact", a.name, "path", path, "error", err)
				errs[i] = &ExportError{Artifact: a.name, Err: err}
				return nil
			}
			slog.Info("artifact written", "artifact", a.name, "path", path, "records", doc.Count)
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	for _, p := range paths {
		if p != "" {
			out.Paths = append(out.Paths, p)
		}
	}
	return out, errors.Join(errs...)
}

// writeFile creates path and streams into it, removing the file again if
// anything fails.
func writeFile(path string, fill func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := fill(bw); err != nil {
		return err
	}
	return bw.Flush()
}
