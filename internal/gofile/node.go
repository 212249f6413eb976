package gofile

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/nahucai95/GoFile-Direct-Link/internal/errs"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/protocol"
)

// Node types reported by the provider.
const (
	TypeFile   = "file"
	TypeFolder = "folder"
)

// Node is a decoded top-level content node: *FolderNode or *FileNode.
type Node interface {
	isNode()
}

// Child is one entry of a folder listing: *FolderRef or *FileNode.
type Child interface {
	isChild()
}

// FolderNode is a folder with its direct children in provider order.
type FolderNode struct {
	ID       string
	Name     string
	Children []Child
}

// FolderRef points at a sub-folder; its children need another lookup.
type FolderRef struct {
	ID   string
	Name string
}

// FileNode is a downloadable file.
type FileNode struct {
	ID   string
	Name string
	Link string
}

func (*FolderNode) isNode() {}
func (*FileNode) isNode()   {}
func (*FolderRef) isChild() {}
func (*FileNode) isChild()  {}

func decodeNode(id string, data protocol.ContentData) (Node, error) {
	if data.ID == "" {
		data.ID = id
	}

	switch data.Type {
	case TypeFolder:
		if data.Name == "" {
			return nil, malformed(id, "folder without name")
		}
		folder := &FolderNode{ID: data.ID, Name: data.Name}
		for _, raw := range data.Children {
			child, err := decodeChild(raw)
			if err != nil {
				return nil, &errs.ProviderError{ContentID: id, Err: err}
			}
			folder.Children = append(folder.Children, child)
		}
		return folder, nil

	case TypeFile:
		file, err := decodeFile(data.ID, data.Name, data.Link)
		if err != nil {
			return nil, &errs.ProviderError{ContentID: id, Err: err}
		}
		return file, nil

	default:
		return nil, malformed(id, fmt.Sprintf("unknown node type %q", data.Type))
	}
}

func decodeChild(raw protocol.RawChild) (Child, error) {
	switch raw.Type {
	case TypeFolder:
		if raw.ID == "" {
			return nil, errors.New("child folder without id")
		}
		return &FolderRef{ID: raw.ID, Name: raw.Name}, nil
	case TypeFile:
		return decodeFile(raw.ID, raw.Name, raw.Link)
	default:
		return nil, fmt.Errorf("child %s: unknown node type %q", raw.ID, raw.Type)
	}
}

func decodeFile(id, name, link string) (*FileNode, error) {
	if name == "" {
		return nil, fmt.Errorf("file %s without name", id)
	}
	if link == "" {
		return nil, fmt.Errorf("file %s without link", id)
	}
	return &FileNode{ID: id, Name: name, Link: link}, nil
}

func malformed(id, msg string) error {
	return &errs.ProviderError{ContentID: id, Err: errors.New(msg)}
}

// HashPassword returns the lowercase hex SHA-256 of password, or "" when no password is set.
func HashPassword(password string) string {
	if password == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
