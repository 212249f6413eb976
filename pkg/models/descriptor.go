// Package models contains the data types shared by the resolver and its callers.
package models

import "fmt"

// FileDescriptor is one resolved file: a decoded direct link and the local path it maps to.
type FileDescriptor struct {
	Link            string `json:"link"`
	DestinationPath string `json:"destination_path"`
}

func (f FileDescriptor) String() string {
	return fmt.Sprintf("%s (%s)", f.DestinationPath, f.Link)
}
