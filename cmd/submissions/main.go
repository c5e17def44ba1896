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

// Threat Submission Report
//
// Retrieves user-reported email threat submissions from Microsoft Graph,
// recovers missing Internet Message-IDs from the recipient's mailbox and
// exports the result as CSV, JSON and optionally an HTML report.
//
// Usage:
//
//	go run ./cmd/submissions/ [--days-back 30] [--category phishing] [--html] [--output-dir reports]
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bcem/submissions/internal/submissions"
)

// version is set at build time via ldflags.
var version = "dev"

// options are the resolved command-line settings for one run.
type options struct {
	query      submissions.Query
	outputDir  string
	html       bool
	skipLookup bool
	publish    bool
	configPath string
}

// newRootCmd builds the command. runFn receives the validated options.
func newRootCmd(runFn func(context.Context, options) error) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "Export user-reported email threat submissions from Microsoft Graph",
		Long: `submissions lists the email threat submissions reported in a Microsoft 365
tenant over a lookback window, fills in missing Internet Message-IDs by
searching the recipient's mailbox, and writes the results as CSV and JSON
(and an interactive HTML page with --html).

Every flag can also be set from the environment as SUBMISSIONS_<FLAG>,
for example SUBMISSIONS_DAYS_BACK=30.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := optionsFrom(v)
			if err != nil {
				return err
			}
			return runFn(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.Int("days-back", 180, "how many days back to retrieve submissions")
	flags.String("category", "", "only this category: "+strings.Join(submissions.Categories, ", "))
	flags.Bool("include-admin", false, "include administrator submissions as well as user reports")
	flags.Bool("html", false, "also write an interactive HTML report")
	flags.String("output-dir", ".", "directory for the exported files")
	flags.Bool("skip-lookup", false, "do not search mailboxes for missing Message-IDs")
	flags.Bool("publish", false, "publish new submissions to the Redis review queue")
	flags.String("config", "", "config file (default: $CONFIG_PATH or ./config.yaml)")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("SUBMISSIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

// optionsFrom reads flags (and their environment overrides) and rejects
// invalid combinations before anything touches the network.
func optionsFrom(v *viper.Viper) (options, error) {
	opts := options{
		query: submissions.Query{
			DaysBack:                v.GetInt("days-back"),
			Category:                v.GetString("category"),
			IncludeAdminSubmissions: v.GetBool("include-admin"),
		},
		outputDir:  v.GetString("output-dir"),
		html:       v.GetBool("html"),
		skipLookup: v.GetBool("skip-lookup"),
		publish:    v.GetBool("publish"),
		configPath: v.GetString("config"),
	}
	if err := opts.query.Validate(); err != nil {
		return opts, err
	}
	if opts.outputDir == "" {
		opts.outputDir = "."
	}
	return opts, nil
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func main() {
	// Structured JSON logging; the level is raised or lowered once config loads.
	slog.SetDefault(newLogger(slog.LevelInfo))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(run).ExecuteContext(ctx); err != nil {
		slog.Error("submission report failed", "error", err)
		stop()
		os.Exit(1)
	}
}
