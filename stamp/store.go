// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package stamp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const stampExt = ".stamp"

// Store keeps stamps in a directory, one file per stamp, named after a random
// UUID.
type Store struct {
	// Dir is the directory holding the stamp files
	Dir string
}

// NewStore creates a Store rooted at dir, creating the directory if needed
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("no store directory supplied")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	return &Store{Dir: dir}, nil
}

// Put stores raw and returns the identifier under which it can be retrieved
func (o *Store) Put(raw []byte) (uuid.UUID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generating stamp id: %w", err)
	}

	if err := WriteFile(o.Path(id), raw); err != nil {
		return uuid.Nil, err
	}

	return id, nil
}

// Get returns the stamp stored under id
func (o *Store) Get(id uuid.UUID) ([]byte, error) {
	return ReadFile(o.Path(id))
}

// List returns the identifiers of all stored stamps, sorted.  Files that do
// not look like stamps are ignored.
func (o *Store) List() ([]uuid.UUID, error) {
	entries, err := os.ReadDir(o.Dir)
	if err != nil {
		return nil, fmt.Errorf("listing store directory: %w", err)
	}

	var ids []uuid.UUID
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, stampExt) {
			continue
		}

		id, err := uuid.Parse(strings.TrimSuffix(name, stampExt))
		if err != nil {
			continue
		}

		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	return ids, nil
}

// Path returns the file name of the stamp stored under id
func (o *Store) Path(id uuid.UUID) string {
	return filepath.Join(o.Dir, id.String()+stampExt)
}
