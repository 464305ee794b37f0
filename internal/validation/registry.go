package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/cases"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/logger"
)

// UploadRefs resolves finalized uploads referenced from sync items
type UploadRefs interface {
	Reference(ctx context.Context, id string) (*domain.FileReference, error)
}

// Registry holds one compiled JSON schema per sync domain
type Registry struct {
	dir             string
	maxPayloadBytes int
	refs            UploadRefs

	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

var folder = cases.Fold()

// NormalizeDomain trims and case-folds a domain name so "Journal " and
// "journal" address the same schema.
func NormalizeDomain(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// NewRegistry creates a Registry. When dir is non-empty the schemas in it
// are loaded immediately. refs may be nil to skip upload reference checks.
func NewRegistry(dir string, maxPayloadBytes int, refs UploadRefs) (*Registry, error) {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = domain.DefaultMaxPayloadBytes
	}
	r := &Registry{
		maxPayloadBytes: maxPayloadBytes,
		refs:            refs,
		schemas:         make(map[string]*jsonschema.Schema),
	}
	if dir == "" {
		return r, nil
	}
	resolved, err := resolveSchemaDir(dir)
	if err != nil {
		return nil, err
	}
	r.dir = resolved
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load compiles every schema in the directory and swaps the set in one step.
// On error the previous set stays active.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf(ErrMsgReadSchemaDir, r.dir, err)
	}

	compiled := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), SchemaFileSuffix) {
			continue
		}
		path := filepath.Join(r.dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf(ErrMsgReadSchema, path, err)
		}
		name := NormalizeDomain(strings.TrimSuffix(e.Name(), SchemaFileSuffix))
		schema, err := compile(path, raw)
		if err != nil {
			return fmt.Errorf(ErrMsgCompileSchema, name, err)
		}
		compiled[name] = schema
	}

	r.mu.Lock()
	r.schemas = compiled
	r.mu.Unlock()

	logger.Info(LogMsgSchemasLoaded, "dir", r.dir, "domains", r.Domains())
	return nil
}

// AddSchema registers or replaces the schema for one domain
func (r *Registry) AddSchema(name string, raw []byte) error {
	name = NormalizeDomain(name)
	schema, err := compile("mem://"+name+SchemaFileSuffix, raw)
	if err != nil {
		return fmt.Errorf(ErrMsgCompileSchema, name, err)
	}
	r.mu.Lock()
	r.schemas[name] = schema
	r.mu.Unlock()
	return nil
}

// Domains lists the known domains in sorted order
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dir returns the resolved schema directory, empty when none is configured
func (r *Registry) Dir() string {
	return r.dir
}

// ValidateItem checks the shape of one sync item and normalises its domain.
// Errors wrap domain.ErrMissingField, domain.ErrInvalidPayload,
// domain.ErrUnknownDomain, domain.ErrPayloadTooLarge or domain.ErrUploadRefNotUsable.
func (r *Registry) ValidateItem(ctx context.Context, item *domain.SyncItem) error {
	item.Domain = NormalizeDomain(item.Domain)
	switch {
	case item.Domain == "":
		return fmt.Errorf(ErrMsgFieldMissing, domain.ErrMissingField, "domain")
	case strings.TrimSpace(item.MobileID) == "":
		return fmt.Errorf(ErrMsgFieldMissing, domain.ErrMissingField, "mobile_id")
	case item.Fields == nil:
		return fmt.Errorf(ErrMsgFieldMissing, domain.ErrMissingField, "fields")
	case item.Version < 0:
		return fmt.Errorf(ErrMsgVersionNegative, domain.ErrInvalidPayload)
	}

	raw, err := json.Marshal(item.Fields)
	if err != nil {
		return fmt.Errorf(ErrMsgSchemaFailed, domain.ErrInvalidPayload, err)
	}
	if len(raw) > r.maxPayloadBytes {
		return fmt.Errorf(ErrMsgPayloadSize, domain.ErrPayloadTooLarge, len(raw), r.maxPayloadBytes)
	}

	r.mu.RLock()
	schema, ok := r.schemas[item.Domain]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf(ErrMsgDomainUnknown, domain.ErrUnknownDomain, item.Domain)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf(ErrMsgSchemaFailed, domain.ErrInvalidPayload, err)
	}
	if err := schema.Validate(doc); err != nil {
		return classify(err)
	}

	if ref, ok := item.Fields[domain.UploadRefField].(string); ok && ref != "" && r.refs != nil {
		if _, err := r.refs.Reference(ctx, ref); err != nil {
			return fmt.Errorf(ErrMsgUploadRef, domain.ErrUploadRefNotUsable, ref, err)
		}
	}
	return nil
}

func compile(url string, raw []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

// classify maps a schema failure to missing-field when a required
// property is absent and to invalid-payload otherwise.
func classify(err error) error {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf(ErrMsgSchemaFailed, domain.ErrInvalidPayload, err)
	}
	var msgs []string
	collectErrors(verr, &msgs)
	detail := strings.Join(msgs, "; ")
	if missing := missingFields(verr); len(missing) > 0 {
		return fmt.Errorf(ErrMsgFieldMissing, domain.ErrMissingField, strings.Join(missing, ","))
	}
	return fmt.Errorf(ErrMsgSchemaFailed, domain.ErrInvalidPayload, detail)
}

func missingFields(err *jsonschema.ValidationError) []string {
	if req, ok := err.ErrorKind.(*kind.Required); ok {
		return req.Missing
	}
	var out []string
	for _, cause := range err.Causes {
		out = append(out, missingFields(cause)...)
	}
	return out
}

// collectErrors recursively collects leaf validation failures
func collectErrors(err *jsonschema.ValidationError, msgs *[]string) {
	if len(err.Causes) == 0 {
		*msgs = append(*msgs, formatError(err))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, msgs)
	}
}

// formatError formats a single validation error
func formatError(err *jsonschema.ValidationError) string {
	location := "/" + strings.Join(err.InstanceLocation, "/")
	if len(err.InstanceLocation) == 0 {
		location = "(root)"
	}
	if err.ErrorKind != nil {
		if kw := err.ErrorKind.KeywordPath(); len(kw) > 0 {
			return fmt.Sprintf("at %s: %s validation failed", location, strings.Join(kw, "."))
		}
	}
	return fmt.Sprintf("at %s: validation failed", location)
}

// resolveSchemaDir accepts an absolute path or a path relative to the
// working directory or any parent up to the module root.
func resolveSchemaDir(dir string) (string, error) {
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for d := cwd; ; {
		candidate := filepath.Join(d, dir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		if _, err := os.Stat(filepath.Join(d, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return "", fmt.Errorf(ErrMsgSchemaNotFound, dir)
}
