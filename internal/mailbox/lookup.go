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

// Package mailbox recovers a message's Internet Message-ID by searching
// the recipient's mailbox for a message from the same sender, with the
// same subject, received around the same time.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bcem/submissions/internal/graph"
)

const (
	// Window is how far either side of the anchor timestamp a candidate
	// message may have been received.
	Window = 60 * time.Minute

	// MaxCandidates is the $top used for the mailbox query.
	MaxCandidates = 20
)

var (
	errMissingInput   = errors.New("mailbox, sender, subject and timestamp are all required")
	errNoCandidates   = errors.New("no messages in lookup window")
	errNoSubjectMatch = errors.New("no candidate with matching subject")
)

// messagesResponse is the single page of /users/{id}/messages we read.
type messagesResponse struct {
	Value []candidate `json:"value"`
}

type candidate struct {
	InternetMessageID string `json:"internetMessageId"`
	Subject           string `json:"subject"`
}

// Client looks up messages in a user's mailbox.
type Client struct {
	graph   *graph.Client
	limiter *rate.Limiter
}

// NewClient creates a mailbox lookup client. limiter paces lookups to stay
// under Graph mailbox throttling; nil means unpaced.
func NewClient(g *graph.Client, limiter *rate.Limiter) *Client {
	return &Client{graph: g, limiter: limiter}
}

// Lookup returns the Internet Message-ID of the first message in
// mailboxOwner's mailbox sent by counterparty within Window of anchor whose
// subject equals subject exactly. Any failure is logged and reported as
// no match.
func (c *Client) Lookup(ctx context.Context, mailboxOwner, counterparty, subject, anchor string) (string, bool) {
	id, err := c.lookup(ctx, mailboxOwner, counterparty, subject, anchor)
	if err != nil {
		slog.Debug("mailbox lookup found no match",
			"mailbox", mailboxOwner,
			"sender", counterparty,
			"anchor", anchor,
			"reason", err,
		)
		return "", false
	}

	slog.Debug("recovered message id from mailbox",
		"mailbox", mailboxOwner,
		"sender", counterparty,
		"message_id", id,
	)
	return id, true
}

func (c *Client) lookup(ctx context.Context, mailboxOwner, counterparty, subject, anchor string) (string, error) {
	if mailboxOwner == "" || counterparty == "" || subject == "" || anchor == "" {
		return "", errMissingInput
	}

	at, err := time.Parse(time.RFC3339, anchor)
	if err != nil {
		return "", fmt.Errorf("parse anchor timestamp: %w", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for lookup slot: %w", err)
		}
	}

	params := url.Values{}
	params.Set("$filter", Filter(counterparty, at))
	params.Set("$select", "internetMessageId,subject")
	params.Set("$top", strconv.Itoa(MaxCandidates))

	lookupURL := c.graph.URL(fmt.Sprintf("users/%s/messages", url.PathEscape(mailboxOwner)), params.Encode())

	var page messagesResponse
	if err := c.graph.GetJSON(ctx, lookupURL, &page); err != nil {
		return "", fmt.Errorf("query mailbox: %w", err)
	}

	if len(page.Value) == 0 {
		return "", errNoCandidates
	}

	// First exact subject match wins; messages sharing sender, subject and
	// window are indistinguishable here.
	for _, m := range page.Value {
		if m.Subject == subject && m.InternetMessageID != "" {
			return m.InternetMessageID, nil
		}
	}

	return "", errNoSubjectMatch
}

// Filter builds the $filter expression matching messages from counterparty
// received within Window of anchor, both bounds inclusive.
func Filter(counterparty string, anchor time.Time) string {
	start := anchor.Add(-Window).UTC().Format(time.RFC3339)
	end := anchor.Add(Window).UTC().Format(time.RFC3339)

	return fmt.Sprintf("from/emailAddress/address eq %s and receivedDateTime ge %s and receivedDateTime le %s",
		graph.Literal(counterparty), start, end)
}
