package gofile_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nahucai95/GoFile-Direct-Link/internal/errs"
	"github.com/nahucai95/GoFile-Direct-Link/internal/gofile"
	"github.com/nahucai95/GoFile-Direct-Link/internal/gofile/gofiletest"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/retry"
)

func testClient(ts *gofiletest.Server) *gofile.Client {
	return gofile.New(gofile.Config{APIURL: ts.URL, SiteURL: ts.URL, Timeout: 2 * time.Second})
}

func TestCreateAccount_Success(t *testing.T) {
	ts := gofiletest.NewServer()
	defer ts.Close()

	token, err := testClient(ts).CreateAccount(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "test-token" {
		t.Errorf("expected test-token, got %q", token)
	}
}

func TestCreateAccount_BadStatus(t *testing.T) {
	ts := gofiletest.NewServer()
	defer ts.Close()
	ts.AccountStatus = "error-rateLimit"

	_, err := testClient(ts).CreateAccount(context.Background())
	ae, ok := errs.AsAuth(err)
	if !ok {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
	if ae.Error() != "cannot get token" {
		t.Errorf("unexpected message %q", ae.Error())
	}
	if retry.IsRetryable(err) {
		t.Error("a rejected account request must not be retryable")
	}
}

func TestFetchVerificationToken(t *testing.T) {
	ts := gofiletest.NewServer()
	defer ts.Close()

	wt, err := testClient(ts).FetchVerificationToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wt != "test-wt" {
		t.Errorf("expected test-wt, got %q", wt)
	}
}

func TestFetchVerificationToken_MarkerMissing(t *testing.T) {
	ts := gofiletest.NewServer()
	defer ts.Close()
	ts.AssetBody = "console.log('no token here')"

	_, err := testClient(ts).FetchVerificationToken(context.Background())
	if !errors.Is(err, errs.ErrAuth) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if err.Error() != "cannot get wt" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestExtractVerificationToken(t *testing.T) {
	tests := []struct {
		script string
		want   string
		ok     bool
	}{
		{`appdata.wt = "4fd6sg89d7s6";`, "4fd6sg89d7s6", true},
		{`x=1;appdata.wt = "abc"; appdata.other = "def"`, "abc", true},
		{`appdata.wt = "unterminated`, "", false},
		{`appdata.wt = "";`, "", false},
		{`appdata.wt="nospace";`, "", false},
	}
	for _, tt := range tests {
		got, ok := gofile.ExtractVerificationToken(tt.script)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtractVerificationToken(%q) = %q, %v; want %q, %v", tt.script, got, ok, tt.want, tt.ok)
		}
	}
}

func TestGetContent_Folder(t *testing.T) {
	ts := gofiletest.NewServer()
	defer ts.Close()
	ts.AddFolder("root", "Photos", "f2", "sub", "f1")
	ts.AddFile("f2", "b.jpg", "https://store/b.jpg")
	ts.AddFolder("sub", "Nested")
	ts.AddFile("f1", "a.jpg", "https://store/a.jpg")

	node, err := testClient(ts).GetContent(context.Background(), "root", ts.Token, ts.WT, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	folder, ok := node.(*gofile.FolderNode)
	if !ok {
		t.Fatalf("expected *FolderNode, got %T", node)
	}
	if folder.Name != "Photos" {
		t.Errorf("expected Photos, got %q", folder.Name)
	}
	if len(folder.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(folder.Children))
	}
	// Provider order is kept.
	if f, ok := folder.Children[0].(*gofile.FileNode); !ok || f.ID != "f2" {
		t.Errorf("expected first child f2, got %#v", folder.Children[0])
	}
	if ref, ok := folder.Children[1].(*gofile.FolderRef); !ok || ref.ID != "sub" {
		t.Errorf("expected folder ref sub, got %#v", folder.Children[1])
	}
}

func TestGetContent_WrongPassword(t *testing.T) {
	ts := gofiletest.NewServer()
	defer ts.Close()
	ts.AddFile("secret", "s.txt", "https://store/s.txt")
	ts.Protect("secret", "hunter2")

	c := testClient(ts)
	_, err := c.GetContent(context.Background(), "secret", ts.Token, ts.WT, gofile.HashPassword("nope"))
	pe, ok := errs.AsPassword(err)
	if !ok {
		t.Fatalf("expected PasswordError, got %T: %v", err, err)
	}
	if pe.Status != "passwordWrong" {
		t.Errorf("unexpected status %q", pe.Status)
	}

	node, err := c.GetContent(context.Background(), "secret", ts.Token, ts.WT, gofile.HashPassword("hunter2"))
	if err != nil {
		t.Fatalf("unexpected error with correct password: %v", err)
	}
	if _, ok := node.(*gofile.FileNode); !ok {
		t.Errorf("expected *FileNode, got %T", node)
	}
}

func TestGetContent_NotFound(t *testing.T) {
	ts := gofiletest.NewServer()
	defer ts.Close()

	_, err := testClient(ts).GetContent(context.Background(), "missing", ts.Token, ts.WT, "")
	pe, ok := errs.AsProvider(err)
	if !ok {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if pe.Status != "error-notFound" {
		t.Errorf("unexpected status %q", pe.Status)
	}
}

func TestGetContent_RejectedToken(t *testing.T) {
	ts := gofiletest.NewServer()
	defer ts.Close()
	ts.AddFile("f", "f.txt", "https://store/f.txt")

	_, err := testClient(ts).GetContent(context.Background(), "f", "stale", ts.WT, "")
	if !errors.Is(err, errs.ErrAuth) {
		t.Fatalf("expected AuthError for 401, got %v", err)
	}
}

func TestGetContent_Timeout(t *testing.T) {
	ts := gofiletest.NewServer()
	defer ts.Close()
	ts.AddFile("slow", "slow.bin", "https://store/slow.bin").Delay = time.Second

	c := gofile.New(gofile.Config{APIURL: ts.URL, SiteURL: ts.URL, Timeout: 50 * time.Millisecond})
	_, err := c.GetContent(context.Background(), "slow", ts.Token, ts.WT, "")
	pe, ok := errs.AsProvider(err)
	if !ok || !pe.Timeout {
		t.Fatalf("expected timeout ProviderError, got %T: %v", err, err)
	}
}

func TestGetContent_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>maintenance</html>`},
		{"unknown type", `{"status":"ok","data":{"type":"album","name":"x"}}`},
		{"file without link", `{"status":"ok","data":{"type":"file","name":"x"}}`},
		{"bad child", `{"status":"ok","data":{"type":"folder","name":"x","children":{"c":{"type":"?"}}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			c := gofile.New(gofile.Config{APIURL: ts.URL, SiteURL: ts.URL})
			_, err := c.GetContent(context.Background(), "x", "t", "w", "")
			if !errors.Is(err, errs.ErrProvider) {
				t.Errorf("expected ProviderError, got %v", err)
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	if gofile.HashPassword("") != "" {
		t.Error("empty password should hash to empty string")
	}
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := gofile.HashPassword("abc"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
