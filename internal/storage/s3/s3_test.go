package s3

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeS3 stores objects for path-style PUT and GET requests.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = string(body)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return
		}
		io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestPutGet(t *testing.T) {
	fake := &fakeS3{objects: make(map[string]string)}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	b, err := New(ctx, Config{
		Endpoint:  srv.URL,
		Bucket:    "manifests",
		AccessKey: "key",
		SecretKey: "secret",
		Region:    "us-east-1",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	body := `{"content_id":"abc"}`
	if err := b.PutObject(ctx, "abc.json", strings.NewReader(body), int64(len(body))); err != nil {
		t.Fatalf("PutObject: %v", err)
	}
	if got := fake.objects["/manifests/abc.json"]; got != body {
		t.Errorf("expected stored body %s, got %q", body, got)
	}

	rc, err := b.GetObject(ctx, "abc.json")
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != body {
		t.Errorf("expected %s, got %s", body, got)
	}

	if _, err := b.GetObject(ctx, "missing.json"); err == nil {
		t.Error("expected error for missing object")
	}
}

func TestNew_RequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{Region: "us-east-1"}); err == nil {
		t.Error("expected error without bucket")
	}
}
