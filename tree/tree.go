// Package tree implements the virtual file-tree host migration
// implementations run against: reads are served from disk, writes and
// deletes are staged in memory until flushed, so a migration that makes
// no changes never touches the working copy.
package tree

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ChangeType discriminates one staged mutation.
type ChangeType int

const (
	ChangeCreate ChangeType = iota
	ChangeUpdate
	ChangeDelete
)

func (c ChangeType) String() string {
	switch c {
	case ChangeCreate:
		return "CREATE"
	case ChangeUpdate:
		return "UPDATE"
	case ChangeDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Change is one staged mutation against a path relative to the tree root.
type Change struct {
	Path    string
	Type    ChangeType
	Content []byte
}

// Host is the virtual file tree a migration implementation is invoked
// against: Read/Write/Delete/Exists operate against an in-memory overlay
// until Flush writes staged changes to disk.
type Host struct {
	root    string
	staged  map[string]*Change
	deleted map[string]bool
}

// New builds a Host rooted at root.
func New(root string) *Host {
	return &Host{
		root:    root,
		staged:  make(map[string]*Change),
		deleted: make(map[string]bool),
	}
}

func (h *Host) abs(path string) string {
	return filepath.Join(h.root, path)
}

// Read returns path's content, preferring a staged write over the on-disk
// copy. Returns an error if the path was deleted or never existed.
func (h *Host) Read(path string) ([]byte, error) {
	if h.deleted[path] {
		return nil, fmt.Errorf("%s does not exist", path)
	}
	if c, ok := h.staged[path]; ok {
		return c.Content, nil
	}
	return os.ReadFile(h.abs(path))
}

// Write stages content for path, to be committed on Flush.
func (h *Host) Write(path string, content []byte) {
	changeType := ChangeUpdate
	if !h.existsOnDisk(path) {
		changeType = ChangeCreate
	}
	delete(h.deleted, path)
	h.staged[path] = &Change{Path: path, Type: changeType, Content: content}
}

// Delete stages path for removal on Flush.
func (h *Host) Delete(path string) {
	delete(h.staged, path)
	h.deleted[path] = true
}

// Exists reports whether path currently exists, accounting for staged
// writes and deletes.
func (h *Host) Exists(path string) bool {
	if h.deleted[path] {
		return false
	}
	if _, ok := h.staged[path]; ok {
		return true
	}
	return h.existsOnDisk(path)
}

func (h *Host) existsOnDisk(path string) bool {
	_, err := os.Stat(h.abs(path))
	return err == nil
}

// ListChanges returns every staged mutation, sorted by path for
// deterministic diff/flush order.
func (h *Host) ListChanges() []Change {
	changes := make([]Change, 0, len(h.staged)+len(h.deleted))
	for _, c := range h.staged {
		changes = append(changes, *c)
	}
	for path := range h.deleted {
		changes = append(changes, Change{Path: path, Type: ChangeDelete})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

// Flush commits every staged change to disk.
func (h *Host) Flush() error {
	for _, change := range h.ListChanges() {
		abs := h.abs(change.Path)
		switch change.Type {
		case ChangeCreate, ChangeUpdate:
			if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", change.Path, err)
			}
			if err := os.WriteFile(abs, change.Content, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", change.Path, err)
			}
		case ChangeDelete:
			if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to delete %s: %w", change.Path, err)
			}
		}
	}
	return nil
}
