// Package protocol defines the provider wire types and the JSON endpoint request/response types.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StatusOK is the provider's success status.
const StatusOK = "ok"

// PasswordOK is the passwordStatus value that permits reading a node.
const PasswordOK = "passwordOk"

// AccountResponse is returned by POST /accounts.
type AccountResponse struct {
	Status string `json:"status"`
	Data   struct {
		Token string `json:"token"`
	} `json:"data"`
}

// ContentResponse is returned by GET /contents/{id}.
type ContentResponse struct {
	Status string      `json:"status"`
	Data   ContentData `json:"data"`
}

// ContentData is the untyped node payload. It is validated into a typed node by the gofile package.
type ContentData struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	Name           string    `json:"name"`
	Link           string    `json:"link,omitempty"`
	PasswordStatus string    `json:"passwordStatus,omitempty"`
	Children       ChildList `json:"children,omitempty"`
}

// RawChild is one entry of a folder's children mapping.
type RawChild struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
	Link string `json:"link,omitempty"`
}

// ChildList holds folder children in the order the provider sent them.
// The provider encodes children as an object keyed by id; an array is accepted too.
type ChildList []RawChild

// UnmarshalJSON decodes the children object while keeping key order.
func (c *ChildList) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}

	delim, ok := tok.(json.Delim)
	if !ok || (delim != '{' && delim != '[') {
		return fmt.Errorf("children: unexpected token %v", tok)
	}

	var out ChildList
	for dec.More() {
		var key string
		if delim == '{' {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ = keyTok.(string)
		}

		var child RawChild
		if err := dec.Decode(&child); err != nil {
			return fmt.Errorf("children[%s]: %w", key, err)
		}
		if child.ID == "" {
			child.ID = key
		}
		out = append(out, child)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

// ErrorResponse is returned on endpoint errors that are not part of the link protocol.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// GetLinkRequest is the body for POST /get-link.
type GetLinkRequest struct {
	URL string `json:"url"`
}

// GetLinkResponse is returned by POST /get-link.
type GetLinkResponse struct {
	Success bool   `json:"success"`
	Link    string `json:"link,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ResolveRequest is the body for POST /api/v1/resolve.
type ResolveRequest struct {
	URL       string   `json:"url,omitempty"`
	ContentID string   `json:"content_id,omitempty"`
	Password  string   `json:"password,omitempty"`
	Excludes  []string `json:"excludes,omitempty"`
	Dir       string   `json:"dir,omitempty"`
	Manifest  string   `json:"manifest,omitempty"` // storage key; empty skips the manifest
}

// ResolvedFile is one descriptor in a ResolveResponse.
type ResolvedFile struct {
	Link            string `json:"link"`
	DestinationPath string `json:"destination_path"`
}

// ResolveResponse is returned by POST /api/v1/resolve.
type ResolveResponse struct {
	Success   bool           `json:"success"`
	ContentID string         `json:"content_id,omitempty"`
	Files     []ResolvedFile `json:"files,omitempty"`
	Failures  []string       `json:"failures,omitempty"`
	Manifest  string         `json:"manifest,omitempty"`
	Error     string         `json:"error,omitempty"`
}
