// Package gofiletest provides an in-process fake of the provider endpoints for tests.
package gofiletest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nahucai95/GoFile-Direct-Link/internal/gofile"
)

// Entry is one node served by the fake.
type Entry struct {
	ID           string
	Type         string
	Name         string
	Link         string
	Children     []string
	PasswordHash string
	Status       string
	Delay        time.Duration
}

// Server serves accounts, the script asset and contents from an in-memory tree.
type Server struct {
	*httptest.Server

	Token string
	WT    string

	// AccountStatus overrides the account response status (default "ok").
	AccountStatus string
	// AssetBody overrides the script asset body.
	AssetBody string

	AccountCalls atomic.Int32
	AssetCalls   atomic.Int32
	ContentCalls atomic.Int32

	mu      sync.Mutex
	entries map[string]*Entry
	lookups []string
}

// NewServer starts a fake provider. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		Token:   "test-token",
		WT:      "test-wt",
		entries: make(map[string]*Entry),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /accounts", s.handleAccounts)
	mux.HandleFunc("GET "+gofile.AssetPath, s.handleAsset)
	mux.HandleFunc("GET /contents/{id}", s.handleContents)
	s.Server = httptest.NewServer(mux)
	return s
}

// AddFolder registers a folder with the given child ids, in order.
func (s *Server) AddFolder(id, name string, children ...string) *Entry {
	return s.add(&Entry{ID: id, Type: gofile.TypeFolder, Name: name, Children: children})
}

// AddFile registers a file.
func (s *Server) AddFile(id, name, link string) *Entry {
	return s.add(&Entry{ID: id, Type: gofile.TypeFile, Name: name, Link: link})
}

// Protect requires password to read the node.
func (s *Server) Protect(id, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id].PasswordHash = gofile.HashPassword(password)
}

// Lookups returns the content ids requested so far.
func (s *Server) Lookups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lookups...)
}

func (s *Server) add(e *Entry) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e
	return e
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	s.AccountCalls.Add(1)
	status := s.AccountStatus
	if status == "" {
		status = "ok"
	}
	writeJSON(w, map[string]any{
		"status": status,
		"data":   map[string]string{"token": s.Token},
	})
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	s.AssetCalls.Add(1)
	w.Header().Set("Content-Type", "application/javascript")
	if s.AssetBody != "" {
		fmt.Fprint(w, s.AssetBody)
		return
	}
	fmt.Fprintf(w, "var appdata = {};\nappdata.wt = \"%s\";\nappdata.apiServer = \"api\";\n", s.WT)
}

func (s *Server) handleContents(w http.ResponseWriter, r *http.Request) {
	s.ContentCalls.Add(1)
	id := r.PathValue("id")

	s.mu.Lock()
	s.lookups = append(s.lookups, id)
	entry, ok := s.entries[id]
	s.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+s.Token {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]string{"status": "error-notAuthenticated"})
		return
	}
	if r.URL.Query().Get("wt") != s.WT {
		writeJSON(w, map[string]string{"status": "error-wrongWt"})
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(w, map[string]string{"status": "error-notFound"})
		return
	}
	if entry.Delay > 0 {
		select {
		case <-time.After(entry.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if entry.Status != "" {
		writeJSON(w, map[string]string{"status": entry.Status})
		return
	}

	data := map[string]any{"id": entry.ID, "type": entry.Type, "name": entry.Name}
	if entry.PasswordHash != "" {
		if r.URL.Query().Get("password") != entry.PasswordHash {
			data["passwordStatus"] = "passwordWrong"
			writeJSON(w, map[string]any{"status": "ok", "data": data})
			return
		}
		data["passwordStatus"] = "passwordOk"
	}

	if entry.Type == gofile.TypeFile {
		data["link"] = entry.Link
		writeJSON(w, map[string]any{"status": "ok", "data": data})
		return
	}

	children, err := s.encodeChildren(entry.Children)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data["children"] = children
	writeJSON(w, map[string]any{"status": "ok", "data": data})
}

// encodeChildren builds the id-keyed children object in insertion order.
func (s *Server) encodeChildren(ids []string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range ids {
		child, ok := s.entries[id]
		if !ok {
			return nil, fmt.Errorf("unknown child %s", id)
		}
		key, _ := json.Marshal(id)
		val, err := json.Marshal(map[string]string{
			"id": child.ID, "type": child.Type, "name": child.Name, "link": child.Link,
		})
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
