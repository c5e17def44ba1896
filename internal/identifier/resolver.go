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

// Package identifier assigns every submission a message identifier tagged
// with where it came from: the submission itself, a mailbox lookup, or a
// composite key synthesised from the submission's fields.
package identifier

import (
	"context"
	"strings"

	"github.com/bcem/submissions/internal/models"
)

// Provenance records how an identifier was obtained.
type Provenance int

const (
	// Authoritative identifiers were present on the submission.
	Authoritative Provenance = iota + 1
	// Recovered identifiers were found by searching the recipient's mailbox.
	Recovered
	// Synthetic identifiers are composite keys built from submission fields.
	Synthetic
)

const (
	// RecoveredPrefix marks identifiers found by mailbox lookup.
	RecoveredPrefix = "RETRIEVED: "
	// SyntheticPrefix marks composite identifiers.
	SyntheticPrefix = "ALT-ID: "
)

func (p Provenance) String() string {
	switch p {
	case Authoritative:
		return "authoritative"
	case Recovered:
		return "recovered"
	case Synthetic:
		return "synthetic"
	default:
		return "unknown"
	}
}

// Resolved is a provenance-tagged message identifier.
type Resolved struct {
	Provenance Provenance
	Value      string
}

// String returns the canonical form: the value with its provenance prefix.
func (r Resolved) String() string {
	switch r.Provenance {
	case Recovered:
		return RecoveredPrefix + r.Value
	case Synthetic:
		return SyntheticPrefix + r.Value
	default:
		return r.Value
	}
}

// Lookup searches a mailbox for a message's Internet Message-ID.
// Implemented by mailbox.Client.
type Lookup interface {
	Lookup(ctx context.Context, mailboxOwner, counterparty, subject, anchor string) (string, bool)
}

// Resolver assigns identifiers to submissions.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a resolver. A nil lookup disables mailbox searches;
// submissions that would have been searched get the sender/subject
// composite instead.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve picks the identifier for s. Rules are evaluated in order and the
// first that applies wins. A field made only of whitespace counts as
// absent; values that are used are passed through unmodified.
//
//  1. internetMessageId present: Authoritative.
//  2. recipient, sender and subject present: one mailbox lookup, giving
//     Recovered on a hit or Synthetic(sender-subject-received) on a miss.
//  3. otherwise: Synthetic(id-created), with no lookup.
func (r *Resolver) Resolve(ctx context.Context, s models.RawSubmission) Resolved {
	if present(s.InternetMessageID) {
		return Resolved{Provenance: Authoritative, Value: s.InternetMessageID}
	}

	if present(s.RecipientEmailAddress) && present(s.Sender) && present(s.Subject) {
		if r.lookup != nil {
			anchor := s.ReceivedDateTime
			if !present(anchor) {
				anchor = s.CreatedDateTime
			}
			if id, ok := r.lookup.Lookup(ctx, s.RecipientEmailAddress, s.Sender, s.Subject, anchor); ok {
				return Resolved{Provenance: Recovered, Value: id}
			}
		}
		return Resolved{
			Provenance: Synthetic,
			Value:      s.Sender + "-" + s.Subject + "-" + s.ReceivedDateTime,
		}
	}

	return Resolved{
		Provenance: Synthetic,
		Value:      s.ID + "-" + s.CreatedDateTime,
	}
}

// present reports whether v holds anything other than whitespace.
func present(v string) bool {
	return strings.TrimSpace(v) != ""
}
