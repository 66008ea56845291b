// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package festival holds the read-only festival table. The table is parsed
// from embedded YAML at startup (or from an override file) and is swapped
// atomically on reload, so lookups never observe a partial table.
package festival

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"tyohaarify/internal/models"
	"tyohaarify/internal/slug"
)

//go:embed data/festivals.yaml
var defaultData []byte

var (
	// ErrNotFound is returned when a festival id is not in the table.
	ErrNotFound = errors.New("festival not found")

	// ErrImageOutOfRange is returned for an image index outside the festival's list.
	ErrImageOutOfRange = errors.New("image index out of range")
)

// Query filters festivals in Search. Empty fields match everything.
type Query struct {
	Region string
	Text   string
}

// table is one immutable snapshot of the festival data.
type table struct {
	list []models.Festival
	byID map[string]int
}

// Store serves festival lookups. All methods are safe for concurrent use.
type Store struct {
	current atomic.Pointer[table]
	path    string // override file, empty when using embedded data
}

// NewDefault returns a store loaded from the embedded festival table.
func NewDefault() (*Store, error) {
	return newStore("", defaultData)
}

// Open loads the festival table from path, or from the embedded data when
// path is empty.
func Open(path string) (*Store, error) {
	if path == "" {
		return NewDefault()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("festival: read %s: %w", path, err)
	}
	return newStore(path, data)
}

func newStore(path string, data []byte) (*Store, error) {
	t, err := parse(data)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.current.Store(t)
	return s, nil
}

// parse decodes and validates a YAML festival list.
func parse(data []byte) (*table, error) {
	var list []models.Festival
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("festival: parse: %w", err)
	}
	if len(list) == 0 {
		return nil, errors.New("festival: table is empty")
	}

	t := &table{list: list, byID: make(map[string]int, len(list))}
	for i := range list {
		f := &list[i]
		if f.Name == "" {
			return nil, fmt.Errorf("festival: entry %d is missing a name", i)
		}
		if f.ID == "" {
			f.ID = slug.Make(f.Name)
		}
		if !slug.Valid(f.ID) {
			return nil, fmt.Errorf("festival: id %q is not a lowercase slug", f.ID)
		}
		if _, dup := t.byID[f.ID]; dup {
			return nil, fmt.Errorf("festival: duplicate id %q", f.ID)
		}
		if len(f.Images) == 0 {
			return nil, fmt.Errorf("festival: %q has no images", f.ID)
		}
		t.byID[f.ID] = i
	}
	return t, nil
}

// Reload re-reads the override file and swaps the table. On a parse error
// the previous table stays in place.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("festival: read %s: %w", s.path, err)
	}
	t, err := parse(data)
	if err != nil {
		return err
	}
	s.current.Store(t)
	return nil
}

// Path returns the override file path, or "" for embedded data.
func (s *Store) Path() string {
	return s.path
}

// All returns every festival in table order. The slice is a copy.
func (s *Store) All() []models.Festival {
	t := s.current.Load()
	out := make([]models.Festival, len(t.list))
	copy(out, t.list)
	return out
}

// Find looks up a festival by id.
func (s *Store) Find(id string) (*models.Festival, bool) {
	t := s.current.Load()
	i, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	f := t.list[i]
	return &f, true
}

// Image returns the image path at index for festival id.
func (s *Store) Image(id string, index int) (string, error) {
	f, ok := s.Find(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !f.HasImage(index) {
		return "", fmt.Errorf("%w: %s has %d images, got index %d", ErrImageOutOfRange, id, len(f.Images), index)
	}
	return f.Images[index], nil
}

// Search returns festivals matching q. Region must match exactly
// (case-insensitive); Text matches a substring of name or description.
func (s *Store) Search(q Query) []models.Festival {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	region := strings.TrimSpace(q.Region)

	var out []models.Festival
	for _, f := range s.current.Load().list {
		if region != "" && !f.InRegion(region) {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(f.Name), text) &&
			!strings.Contains(strings.ToLower(f.Description), text) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Regions returns the distinct regions in table order.
func (s *Store) Regions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range s.current.Load().list {
		if !seen[f.Region] {
			seen[f.Region] = true
			out = append(out, f.Region)
		}
	}
	return out
}
