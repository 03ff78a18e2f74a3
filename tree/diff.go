package tree

import (
	"fmt"
	"os"
	"strings"

	"github.com/aymanbagabas/go-udiff"
)

// Diff renders a unified diff of every change in changes, reading each
// path's prior on-disk content (empty for a create) to diff against the
// staged content (empty for a delete).
func (h *Host) Diff(changes []Change) (string, error) {
	var b strings.Builder

	for _, c := range changes {
		before, err := h.readOriginal(c.Path)
		if err != nil {
			return "", fmt.Errorf("failed to read original content of %s: %w", c.Path, err)
		}

		after := string(c.Content)
		if c.Type == ChangeDelete {
			after = ""
		}

		unified := udiff.Unified(c.Path, c.Path, before, after)
		if unified == "" {
			continue
		}
		b.WriteString(unified)
	}

	return b.String(), nil
}

func (h *Host) readOriginal(path string) (string, error) {
	content, err := os.ReadFile(h.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(content), nil
}
