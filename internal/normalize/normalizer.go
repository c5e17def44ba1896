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

// Package normalize flattens Graph threat submissions into export records.
package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/bcem/submissions/internal/identifier"
	"github.com/bcem/submissions/internal/models"
)

// ListSeparator joins list-valued fields into a single column.
const ListSeparator = "; "

// Resolver assigns a message identifier to a submission.
// Implemented by identifier.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, s models.RawSubmission) identifier.Resolved
}

// Normalizer converts raw submissions to canonical records.
type Normalizer struct {
	resolver Resolver
}

// NewNormalizer creates a normalizer that uses resolver for identifiers.
func NewNormalizer(resolver Resolver) *Normalizer {
	return &Normalizer{resolver: resolver}
}

// Normalize flattens raw into a CanonicalRecord. It never fails: absent
// nested objects and lists become empty strings and absent flags "No".
func (n *Normalizer) Normalize(ctx context.Context, raw models.RawSubmission) models.CanonicalRecord {
	id := n.resolver.Resolve(ctx, raw)

	rec := models.CanonicalRecord{
		SubmissionID:        raw.ID,
		CreatedDateTime:     raw.CreatedDateTime,
		Source:              raw.Source,
		Category:            raw.Category,
		OriginalCategory:    raw.OriginalCategory,
		ContentType:         raw.ContentType,
		ClientSource:        raw.ClientSource,
		Status:              raw.Status,
		TenantID:            raw.TenantID,
		Recipient:           raw.RecipientEmailAddress,
		Sender:              raw.Sender,
		SenderIP:            raw.SenderIP,
		Subject:             raw.Subject,
		ReceivedDateTime:    raw.ReceivedDateTime,
		InternetMessageID:   id.String(),
		MessageIDProvenance: id.Provenance.String(),
		IsAdminReviewed:     yesNo(raw.AdminReview != nil),
		IsAttackSimulation:  yesNo(raw.AttackSimulationInfo != nil),
	}

	if raw.CreatedBy != nil && raw.CreatedBy.User != nil {
		rec.SubmittedBy = raw.CreatedBy.User.DisplayName
		rec.SubmittedByEmail = raw.CreatedBy.User.Email
		rec.SubmittedByUserID = raw.CreatedBy.User.ID
	}

	if res := raw.Result; res != nil {
		rec.ResultCategory = res.Category
		rec.ResultDetail = res.Detail
		rec.UserMailboxSetting = res.UserMailboxSetting
		rec.DetectedURLs = strings.Join(res.DetectedURLs, ListSeparator)

		names := make([]string, 0, len(res.DetectedFiles))
		hashes := make([]string, 0, len(res.DetectedFiles))
		for _, f := range res.DetectedFiles {
			names = append(names, f.FileName)
			hashes = append(hashes, f.FileHash)
		}
		rec.DetectedFileNames = strings.Join(names, ListSeparator)
		rec.DetectedFileHashes = strings.Join(hashes, ListSeparator)
	}

	if review := raw.AdminReview; review != nil {
		rec.AdminReviewBy = review.ReviewBy
		rec.AdminReviewResult = review.ReviewResult
		rec.AdminReviewDateTime = review.ReviewDateTime
	}

	if sim := raw.AttackSimulationInfo; sim != nil {
		rec.AttackSimDateTime = sim.AttackSimDateTime
		rec.AttackSimDurationTime = sim.AttackSimDurationTime
		rec.AttackSimID = sim.AttackSimID
		rec.AttackSimUserID = sim.AttackSimUserID
	}

	if action := raw.TenantAllowOrBlockListAction; action != nil {
		rec.TenantAction = action.Action
		rec.TenantActionExpiration = action.ExpirationDateTime
		rec.TenantActionNote = action.Note

		results := make([]string, 0, len(action.Results))
		for _, r := range action.Results {
			results = append(results, formatListResult(r))
		}
		rec.TenantActionResults = strings.Join(results, ListSeparator)
	}

	return rec
}

// formatListResult renders an allow/block entry as "value (status)".
func formatListResult(r models.TenantListResult) string {
	if r.Status == "" {
		return r.Value
	}
	return fmt.Sprintf("%s (%s)", r.Value, r.Status)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
