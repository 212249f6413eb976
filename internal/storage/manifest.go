package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/nahucai95/GoFile-Direct-Link/internal/logging"
	"github.com/nahucai95/GoFile-Direct-Link/internal/metrics"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/models"
)

// WriteManifest stores m as indented JSON under key.
func WriteManifest(ctx context.Context, b Backend, key string, m *models.Manifest) error {
	if m.Files == nil {
		m.Files = []models.FileDescriptor{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	err = b.PutObject(ctx, key, bytes.NewReader(data), int64(len(data)))
	metrics.RecordManifestWrite(b.Type(), err == nil)
	if err != nil {
		return fmt.Errorf("write manifest %s: %w", key, err)
	}

	logging.WithContext(ctx).Info("manifest written",
		zap.String("backend", b.Type()),
		zap.String("key", key),
		zap.Int("files", len(m.Files)))
	return nil
}

// ReadManifest loads a manifest previously written with WriteManifest.
func ReadManifest(ctx context.Context, b Backend, key string) (*models.Manifest, error) {
	rc, err := b.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var m models.Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", key, err)
	}
	return &m, nil
}
