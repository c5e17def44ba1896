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

package report

import (
	_ "embed"
	"html/template"
	"io"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/bcem/submissions/internal/identifier"
	"github.com/bcem/submissions/internal/models"
)

//go:embed report.html.tmpl
var htmlSource string

var htmlTemplate = template.Must(template.New("report").
	Funcs(template.FuncMap{"provenanceClass": provenanceClass}).
	Parse(htmlSource))

// Count is one line of a summary table.
type Count struct {
	Label string
	Count int
}

type htmlRow struct {
	models.CanonicalRecord
	CategoryLabel string
	Search        string
}

type htmlView struct {
	*Document
	ByCategory   []Count
	BySource     []Count
	ByProvenance []Count
	Categories   []string
	Rows         []htmlRow
}

func writeHTML(w io.Writer, doc *Document) error {
	view := htmlView{
		Document:     doc,
		ByCategory:   Tally(doc.Records, func(r models.CanonicalRecord) string { return CategoryLabel(r.Category) }),
		BySource:     Tally(doc.Records, func(r models.CanonicalRecord) string { return CategoryLabel(r.Source) }),
		ByProvenance: Tally(doc.Records, func(r models.CanonicalRecord) string { return r.MessageIDProvenance }),
		Rows:         make([]htmlRow, 0, len(doc.Records)),
	}
	for _, c := range view.ByCategory {
		view.Categories = append(view.Categories, c.Label)
	}
	sort.Strings(view.Categories)

	for _, r := range doc.Records {
		view.Rows = append(view.Rows, htmlRow{
			CanonicalRecord: r,
			CategoryLabel:   CategoryLabel(r.Category),
			Search:          searchText(r),
		})
	}
	return htmlTemplate.Execute(w, view)
}

// Tally counts records by key, largest group first and ties by label.
// An empty key is counted as "Unknown".
func Tally(records []models.CanonicalRecord, key func(models.CanonicalRecord) string) []Count {
	counts := make(map[string]int)
	for _, r := range records {
		k := key(r)
		if k == "" {
			k = "Unknown"
		}
		counts[k]++
	}

	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

var titleCaser = cases.Title(language.English)

// CategoryLabel turns a Graph enum value such as "notJunk" into "Not Junk".
func CategoryLabel(value string) string {
	if value == "" {
		return "Unknown"
	}
	var b strings.Builder
	for i, r := range value {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return titleCaser.String(b.String())
}

// searchText is the lowercased haystack the page filters rows on.
func searchText(r models.CanonicalRecord) string {
	fields := []string{
		r.SubmissionID, r.Category, r.Source, r.SubmittedBy, r.SubmittedByEmail,
		r.Recipient, r.Sender, r.SenderIP, r.Subject, r.InternetMessageID,
		r.ResultCategory, r.ResultDetail,
	}
	return strings.ToLower(norm.NFC.String(strings.Join(fields, " ")))
}

// provenanceClass styles the identifier cell.
func provenanceClass(p string) string {
	switch p {
	case identifier.Recovered.String():
		return "id-recovered"
	case identifier.Synthetic.String():
		return "id-synthetic"
	}
	return "id-authoritative"
}
