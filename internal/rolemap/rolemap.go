// Package rolemap holds the role to document type mapping.
//
// The mapping decides which documents gate which reviewer role and which role
// holders may put a document under review. It is loaded from a YAML file and
// can be reloaded while the service runs.
package rolemap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"land-review/internal/models"
)

const defaultMappingYAML = `# role to document type mapping
version: 1
roles:
  sales:
    - title_deed
    - sale_agreement
  analyst:
    - valuation_report
    - financial_model
    - site_survey
  governance:
    - compliance_certificate
    - zoning_approval
`

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// File models the YAML mapping file
type File struct {
	Version int                 `yaml:"version"`
	Roles   map[string][]string `yaml:"roles"`
}

// Mapping is an immutable, validated role mapping
type Mapping struct {
	byRole    map[models.ReviewRole][]string
	byDocType map[string][]models.ReviewRole
}

// Parse decodes and validates a mapping file
func Parse(data []byte) (*Mapping, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse role mapping: %w", err)
	}
	if len(f.Roles) == 0 {
		return nil, errors.New("role mapping defines no roles")
	}

	m := &Mapping{
		byRole:    make(map[models.ReviewRole][]string, len(f.Roles)),
		byDocType: make(map[string][]models.ReviewRole),
	}
	for role, docTypes := range f.Roles {
		if !namePattern.MatchString(role) {
			return nil, fmt.Errorf("invalid role name %q", role)
		}
		if role == models.AdminRole {
			return nil, fmt.Errorf("%q is reserved and cannot be a reviewer role", role)
		}
		seen := make(map[string]bool, len(docTypes))
		types := make([]string, 0, len(docTypes))
		for _, dt := range docTypes {
			if !namePattern.MatchString(dt) {
				return nil, fmt.Errorf("role %s: invalid document type %q", role, dt)
			}
			if seen[dt] {
				continue
			}
			seen[dt] = true
			types = append(types, dt)
			m.byDocType[dt] = append(m.byDocType[dt], models.ReviewRole(role))
		}
		sort.Strings(types)
		m.byRole[models.ReviewRole(role)] = types
	}
	for dt := range m.byDocType {
		roles := m.byDocType[dt]
		sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	}
	return m, nil
}

// Default returns the built-in mapping
func Default() *Mapping {
	m, err := Parse([]byte(defaultMappingYAML))
	if err != nil {
		panic(fmt.Sprintf("built-in role mapping is invalid: %v", err))
	}
	return m
}

// DocumentTypes returns the document types gating role
func (m *Mapping) DocumentTypes(role models.ReviewRole) []string {
	return append([]string(nil), m.byRole[role]...)
}

// RolesFor returns the roles whose review is gated by docType
func (m *Mapping) RolesFor(docType string) []models.ReviewRole {
	return append([]models.ReviewRole(nil), m.byDocType[docType]...)
}

// KnownRole reports whether role is configured
func (m *Mapping) KnownRole(role models.ReviewRole) bool {
	_, ok := m.byRole[role]
	return ok
}

// KnownDocumentType reports whether any role references docType
func (m *Mapping) KnownDocumentType(docType string) bool {
	_, ok := m.byDocType[docType]
	return ok
}

// Roles lists configured roles in name order
func (m *Mapping) Roles() []models.ReviewRole {
	roles := make([]models.ReviewRole, 0, len(m.byRole))
	for r := range m.byRole {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Registry serves the current mapping and reloads it from disk on demand
type Registry struct {
	path    string
	current atomic.Pointer[Mapping]

	mu      sync.Mutex
	modTime time.Time
}

// NewRegistry loads path, or the built-in mapping when path is empty
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if path == "" {
		r.current.Store(Default())
		return r, nil
	}
	if _, err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewStaticRegistry serves a fixed mapping
func NewStaticRegistry(m *Mapping) *Registry {
	r := &Registry{}
	r.current.Store(m)
	return r
}

// Current returns the active mapping
func (r *Registry) Current() *Mapping {
	return r.current.Load()
}

// Reload re-reads the file when it changed since the last load. A file that
// fails validation leaves the active mapping untouched.
func (r *Registry) Reload() (bool, error) {
	if r.path == "" {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(r.path)
	if err != nil {
		return false, fmt.Errorf("stat role mapping: %w", err)
	}
	if r.current.Load() != nil && info.ModTime().Equal(r.modTime) {
		return false, nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return false, fmt.Errorf("read role mapping: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return false, err
	}

	r.current.Store(m)
	r.modTime = info.ModTime()
	slog.Info("Role mapping loaded", "path", r.path, "roles", len(m.byRole))
	return true, nil
}
