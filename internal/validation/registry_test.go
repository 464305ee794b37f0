package validation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/mobilesync/internal/domain"
)

const noteSchema = `{
	"type": "object",
	"required": ["text"],
	"properties": {
		"text": {"type": "string"},
		"count": {"type": "integer", "minimum": 0}
	}
}`

type refStub map[string]error

func (r refStub) Reference(_ context.Context, id string) (*domain.FileReference, error) {
	if err, ok := r[id]; ok && err != nil {
		return nil, err
	}
	if _, ok := r[id]; !ok {
		return nil, domain.ErrUploadNotFound
	}
	return &domain.FileReference{UploadID: id}, nil
}

func newNoteRegistry(t *testing.T, maxBytes int, refs UploadRefs) *Registry {
	t.Helper()
	r, err := NewRegistry("", maxBytes, refs)
	require.NoError(t, err)
	require.NoError(t, r.AddSchema("Note", []byte(noteSchema)))
	return r
}

func TestNewRegistry_LoadsShippedSchemas(t *testing.T) {
	r, err := NewRegistry("configs/schemas", 0, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"attendance", "incident", "journal"}, r.Domains())
}

func TestValidateItem(t *testing.T) {
	refs := refStub{"up-final": nil, "up-active": domain.ErrUploadRefNotUsable}
	r := newNoteRegistry(t, 64, refs)

	tests := []struct {
		name    string
		item    domain.SyncItem
		wantErr error
	}{
		{"valid", domain.SyncItem{Domain: "note", MobileID: "m1", Fields: map[string]any{"text": "hi"}}, nil},
		{"domain normalised", domain.SyncItem{Domain: "  NOTE ", MobileID: "m1", Fields: map[string]any{"text": "hi"}}, nil},
		{"missing domain", domain.SyncItem{MobileID: "m1", Fields: map[string]any{}}, domain.ErrMissingField},
		{"missing mobile id", domain.SyncItem{Domain: "note", Fields: map[string]any{}}, domain.ErrMissingField},
		{"missing fields", domain.SyncItem{Domain: "note", MobileID: "m1"}, domain.ErrMissingField},
		{"negative version", domain.SyncItem{Domain: "note", MobileID: "m1", Version: -1, Fields: map[string]any{}}, domain.ErrInvalidPayload},
		{"unknown domain", domain.SyncItem{Domain: "recipe", MobileID: "m1", Fields: map[string]any{"text": "x"}}, domain.ErrUnknownDomain},
		{"required property absent", domain.SyncItem{Domain: "note", MobileID: "m1", Fields: map[string]any{"count": 1}}, domain.ErrMissingField},
		{"wrong type", domain.SyncItem{Domain: "note", MobileID: "m1", Fields: map[string]any{"text": 5}}, domain.ErrInvalidPayload},
		{"constraint violated", domain.SyncItem{Domain: "note", MobileID: "m1", Fields: map[string]any{"text": "x", "count": -2}}, domain.ErrInvalidPayload},
		{"too large", domain.SyncItem{Domain: "note", MobileID: "m1", Fields: map[string]any{"text": strings.Repeat("a", 100)}}, domain.ErrPayloadTooLarge},
		{"finalized upload ref", domain.SyncItem{Domain: "note", MobileID: "m1", Fields: map[string]any{"text": "x", "upload_id": "up-final"}}, nil},
		{"unfinalized upload ref", domain.SyncItem{Domain: "note", MobileID: "m1", Fields: map[string]any{"text": "x", "upload_id": "up-active"}}, domain.ErrUploadRefNotUsable},
		{"unknown upload ref", domain.SyncItem{Domain: "note", MobileID: "m1", Fields: map[string]any{"text": "x", "upload_id": "up-none"}}, domain.ErrUploadRefNotUsable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := tt.item
			err := r.ValidateItem(context.Background(), &item)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "note", item.Domain)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestValidateItem_Codes(t *testing.T) {
	r := newNoteRegistry(t, 0, nil)

	missing := r.ValidateItem(context.Background(), &domain.SyncItem{Domain: "note", MobileID: "m1", Fields: map[string]any{}})
	invalid := r.ValidateItem(context.Background(), &domain.SyncItem{Domain: "note", MobileID: "m1", Fields: map[string]any{"text": true}})

	assert.Equal(t, domain.CodeMissingField, domain.CodeOf(missing))
	assert.Contains(t, missing.Error(), "text")
	assert.Equal(t, domain.CodeInvalidPayload, domain.CodeOf(invalid))
}

func TestLoad_BadSchemaKeepsPreviousSet(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note"+SchemaFileSuffix), []byte(noteSchema), 0o644))
	r, err := NewRegistry(dir, 0, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken"+SchemaFileSuffix), []byte(`{"type": 12}`), 0o644))

	assert.Error(t, r.Load())
	assert.Equal(t, []string{"note"}, r.Domains())
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note"+SchemaFileSuffix), []byte(noteSchema), 0o644))
	r, err := NewRegistry(dir, 0, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx) }()
	// Give the watcher time to register the directory
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "task"+SchemaFileSuffix), []byte(`{"type":"object"}`), 0o644))

	assert.Eventually(t, func() bool {
		return len(r.Domains()) == 2
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "journal", NormalizeDomain(" Journal\t"))
	assert.Equal(t, "strasse", NormalizeDomain("STRASSE"))
	assert.Equal(t, "", NormalizeDomain("   "))
}
