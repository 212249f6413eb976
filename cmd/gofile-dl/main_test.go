package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nahucai95/GoFile-Direct-Link/internal/config"
	"github.com/nahucai95/GoFile-Direct-Link/internal/errs"
	"github.com/nahucai95/GoFile-Direct-Link/internal/gofile/gofiletest"
	"github.com/nahucai95/GoFile-Direct-Link/internal/storage"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/models"
)

func testConfig(ts *gofiletest.Server) *config.Config {
	return &config.Config{
		LogLevel:          "error",
		APIURL:            ts.URL,
		SiteURL:           ts.URL,
		SharePrefix:       "https://gofile.io/d/",
		RequestTimeout:    2 * time.Second,
		Concurrency:       2,
		MaxDepth:          8,
		RetryAttempts:     1,
		ManifestBackend:   "local",
		ManifestLocalPath: ".",
	}
}

func TestRun_PrintsDescriptors(t *testing.T) {
	ts := gofiletest.NewServer()
	defer ts.Close()
	ts.AddFolder("abc", "Pics", "1", "2")
	ts.AddFile("1", "one.jpg", "https://s/one")
	ts.AddFile("2", "two.tmp", "https://s/two")

	var out bytes.Buffer
	opts := options{dir: "./output", excludes: []string{"*.tmp"}}
	if err := run(context.Background(), testConfig(ts), opts, "https://gofile.io/d/abc", &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	sep := string(filepath.Separator)
	want := "./output" + sep + "Pics" + sep + "one.jpg (https://s/one)\n"
	if out.String() != want {
		t.Errorf("expected %q, got %q", want, out.String())
	}
}

func TestRun_JSONAndManifest(t *testing.T) {
	ts := gofiletest.NewServer()
	defer ts.Close()
	ts.AddFile("abc123", "abc_file.txt", "https://s/abc")

	cfg := testConfig(ts)
	cfg.ManifestLocalPath = t.TempDir()

	var out bytes.Buffer
	opts := options{dir: "./", contentID: true, jsonOut: true, manifest: "abc123.json", token: "test-token"}
	if err := run(context.Background(), cfg, opts, "abc123", &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if ts.AccountCalls.Load() != 0 {
		t.Error("a supplied token must skip account creation")
	}

	var printed models.Manifest
	if err := json.Unmarshal(out.Bytes(), &printed); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(printed.Files) != 1 || printed.Files[0].DestinationPath != "./abc_file.txt" {
		t.Errorf("unexpected output %+v", printed)
	}

	backend, err := storage.NewBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	stored, err := storage.ReadManifest(context.Background(), backend, "abc123.json")
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if stored.ContentID != "abc123" || len(stored.Files) != 1 {
		t.Errorf("unexpected manifest %+v", stored)
	}
}

func TestRun_InvalidURL(t *testing.T) {
	ts := gofiletest.NewServer()
	defer ts.Close()

	var out bytes.Buffer
	err := run(context.Background(), testConfig(ts), options{dir: "./output"}, "https://example.com/d/abc", &out)
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Fatalf("expected InvalidInputError, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"-d", "media", "-p", "pw", "-e", "*.tmp", "-e", "*.nfo"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	dir, _ := cmd.Flags().GetString("dir")
	excludes, _ := cmd.Flags().GetStringArray("exclude")
	if dir != "media" || strings.Join(excludes, ",") != "*.tmp,*.nfo" {
		t.Errorf("unexpected flags dir=%q excludes=%v", dir, excludes)
	}

	if err := newRootCmd().Args(cmd, nil); err == nil {
		t.Error("expected an error without a url argument")
	}
}
