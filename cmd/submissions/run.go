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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/bcem/submissions/internal/auth"
	"github.com/bcem/submissions/internal/config"
	"github.com/bcem/submissions/internal/dedup"
	"github.com/bcem/submissions/internal/graph"
	"github.com/bcem/submissions/internal/identifier"
	"github.com/bcem/submissions/internal/mailbox"
	"github.com/bcem/submissions/internal/models"
	"github.com/bcem/submissions/internal/normalize"
	"github.com/bcem/submissions/internal/queue"
	"github.com/bcem/submissions/internal/report"
	"github.com/bcem/submissions/internal/submissions"
)

// publishSink forwards records to the review queue, once per submission.
type publishSink struct {
	publisher *queue.Publisher
	seen      *dedup.Filter
}

// run checks prerequisites (config, credentials, Redis when publishing)
// and then produces the report.
func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	slog.SetDefault(newLogger(cfg.LogLevel))

	if opts.query.PageSize == 0 {
		opts.query.PageSize = cfg.PageSize
	}

	var sink *publishSink
	if opts.publish {
		if cfg.RedisURL == "" {
			return errors.New("--publish needs redis.url in config or REDIS_URL")
		}
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		publisher := queue.NewPublisher(rdb, cfg.SubmissionsQueue)
		if err := publisher.Ping(ctx); err != nil {
			return fmt.Errorf("connect to Redis: %w", err)
		}
		slog.Info("connected to Redis", "queue", cfg.SubmissionsQueue)
		sink = &publishSink{publisher: publisher, seen: dedup.NewFilter(rdb, 0)}
	}

	httpClient, err := auth.Connect(ctx, cfg.Tenant, auth.Options{
		AuthorityHost: cfg.AuthorityHost,
		Timeout:       cfg.HTTPTimeout,
	})
	if err != nil {
		return err
	}

	return generate(ctx, opts, cfg, httpClient, sink)
}

// generate retrieves, exports and optionally publishes the submissions.
// A retrieval failure still exports whatever was fetched before it and is
// then returned. Export and publish failures are only logged.
func generate(ctx context.Context, opts options, cfg *config.Config, httpClient *http.Client, sink *publishSink) error {
	g := graph.NewClient(httpClient, cfg.GraphBaseURL)

	var lookup identifier.Lookup
	if !opts.skipLookup {
		limiter := rate.NewLimiter(rate.Limit(cfg.LookupRatePerSecond), max(cfg.LookupBurst, 1))
		lookup = mailbox.NewClient(g, limiter)
	}

	driver := submissions.NewDriver(g, func(count int) {
		slog.Info("retrieving submissions", "tenant", cfg.Tenant.Alias, "records", count)
	})
	retriever := submissions.NewRetriever(driver, normalize.NewNormalizer(identifier.NewResolver(lookup)))

	slog.Info("starting submission retrieval",
		"tenant", cfg.Tenant.Alias,
		"days_back", opts.query.DaysBack,
		"category", opts.query.Category,
		"include_admin", opts.query.IncludeAdminSubmissions,
		"mailbox_lookup", !opts.skipLookup,
	)

	result, runErr := retriever.Run(ctx, opts.query)
	if result == nil {
		return runErr
	}

	logSummary(cfg.Tenant.Alias, result)
	if len(result.Records) == 0 && runErr == nil {
		slog.Warn("no submissions matched the filter; the query succeeded but returned no data. "+
			"Check that user reporting is enabled in the tenant's user reported settings "+
			"and that the lookback window covers reported messages",
			"tenant", cfg.Tenant.Alias,
			"filter", result.Filter,
		)
	}

	// Interrupted runs still write what they have.
	exportCtx := context.WithoutCancel(ctx)

	artifacts, exportErr := report.NewExporter(opts.outputDir, opts.html).
		Export(exportCtx, result.Filter, result.Partial, result.Records)
	if exportErr != nil {
		slog.Warn("some report artifacts were not written", "error", exportErr)
	}
	if artifacts != nil {
		slog.Info("report exported", "report_id", artifacts.ReportID, "files", artifacts.Paths)
	}

	if sink != nil && len(result.Records) > 0 {
		if _, err := sink.publisher.PublishNew(exportCtx, result.Records, sink.seen); err != nil {
			slog.Warn("publishing submissions stopped early", "error", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("retrieval incomplete, exported %d submissions: %w", len(result.Records), runErr)
	}
	return nil
}

func logSummary(tenant string, result *submissions.Result) {
	attrs := []any{
		"tenant", tenant,
		"records", len(result.Records),
		"partial", result.Partial,
	}
	for _, c := range report.Tally(result.Records, func(r models.CanonicalRecord) string { return r.MessageIDProvenance }) {
		attrs = append(attrs, "message_id_"+c.Label, c.Count)
	}
	slog.Info("submission retrieval summary", attrs...)
}
