// gofile-dl prints the direct download links of a gofile.io share.
//
// Usage:
//
//	gofile-dl https://gofile.io/d/abc123 -d ./output -p secret -e '*.tmp'
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nahucai95/GoFile-Direct-Link/internal/config"
	"github.com/nahucai95/GoFile-Direct-Link/internal/gofile"
	"github.com/nahucai95/GoFile-Direct-Link/internal/logging"
	"github.com/nahucai95/GoFile-Direct-Link/internal/resolver"
	"github.com/nahucai95/GoFile-Direct-Link/internal/session"
	"github.com/nahucai95/GoFile-Direct-Link/internal/storage"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/models"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/retry"
)

type options struct {
	dir         string
	password    string
	excludes    []string
	contentID   bool
	token       string
	jsonOut     bool
	manifest    string
	concurrency int
	retries     int
	logLevel    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "gofile-dl <url>",
		Short: "Resolve a gofile.io share into direct download links",
		Long: `Resolve a gofile.io share into direct download links.

Folders are walked recursively; each file is printed as "destination (link)".

Example:
  gofile-dl https://gofile.io/d/abc123
  gofile-dl https://gofile.io/d/abc123 -d media -p secret -e '*.tmp' -e '*.nfo'
  gofile-dl --id abc123 --json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return run(cmd.Context(), cfg, opts, args[0], cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.dir, "dir", "d", "./output", "Output directory")
	f.StringVarP(&opts.password, "password", "p", "", "Share password")
	f.StringArrayVarP(&opts.excludes, "exclude", "e", nil, "Glob pattern of file names to skip (repeatable)")
	f.BoolVar(&opts.contentID, "id", false, "Treat the argument as a content id instead of a share URL")
	f.StringVar(&opts.token, "token", "", "API token to use instead of creating an anonymous account")
	f.BoolVar(&opts.jsonOut, "json", false, "Print the result as JSON")
	f.StringVar(&opts.manifest, "manifest", "", "Write a manifest to this key in the configured storage backend")
	f.IntVar(&opts.concurrency, "concurrency", 0, "Maximum concurrent provider requests (default from GOFILE_CONCURRENCY)")
	f.IntVar(&opts.retries, "retries", 0, "Attempts on transport errors (default from RETRY_ATTEMPTS)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (default from LOG_LEVEL)")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, opts options, target string, out io.Writer) error {
	if opts.token != "" {
		cfg.Token = opts.token
	}
	if opts.concurrency > 0 {
		cfg.Concurrency = opts.concurrency
	}
	if opts.retries > 0 {
		cfg.RetryAttempts = opts.retries
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: "console"}); err != nil {
		return fmt.Errorf("logging init: %w", err)
	}
	defer logging.Sync()

	client := gofile.New(gofile.Config{
		APIURL:    cfg.APIURL,
		SiteURL:   cfg.SiteURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.RequestTimeout,
	})
	sess := session.New(client, session.Credentials{
		APIToken:          cfg.Token,
		VerificationToken: cfg.VerificationToken,
	})
	r := resolver.New(client, sess, resolver.Config{
		SharePrefix: cfg.SharePrefix,
		Concurrency: cfg.Concurrency,
		MaxDepth:    cfg.MaxDepth,
	})

	req := resolver.Request{
		DestDir:  opts.dir,
		Password: opts.password,
		Excludes: opts.excludes,
	}
	if opts.contentID {
		req.ContentID = target
	} else {
		req.ShareURL = target
	}

	rc := retry.DefaultConfig(cfg.RetryAttempts)
	rc.OnRetry = func(attempt int, err error, wait time.Duration) {
		logging.Warn("retrying", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}
	res, err := retry.DoWithResult(ctx, rc, func() (*resolver.Result, error) {
		return r.Resolve(ctx, req)
	})
	if err != nil {
		return err
	}

	manifest := &models.Manifest{
		ContentID:   res.ContentID,
		GeneratedAt: time.Now().UTC(),
		Files:       res.Files,
	}
	for _, f := range res.Failures {
		manifest.Failures = append(manifest.Failures, f.Error())
	}

	if opts.manifest != "" {
		backend, err := storage.NewBackend(ctx, cfg)
		if err != nil {
			return fmt.Errorf("manifest storage: %w", err)
		}
		defer backend.Close()
		if err := storage.WriteManifest(ctx, backend, opts.manifest, manifest); err != nil {
			return err
		}
	}

	return printResult(out, manifest, opts.jsonOut)
}

func printResult(out io.Writer, m *models.Manifest, asJSON bool) error {
	if asJSON {
		if m.Files == nil {
			m.Files = []models.FileDescriptor{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}

	for _, f := range m.Files {
		fmt.Fprintln(out, f.String())
	}
	for _, msg := range m.Failures {
		logging.Warn("skipped", zap.String("reason", msg))
	}
	if len(m.Files) == 0 {
		logging.Warn("no file found", zap.String("content_id", m.ContentID))
	}
	return nil
}
