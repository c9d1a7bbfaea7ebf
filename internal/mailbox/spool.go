package mailbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// processedDir is where a spool moves messages once their job is queued.
const processedDir = ".processed"

// Spool is a Client over a directory of .eml files, one subdirectory per
// label. Mail can be delivered into it by an MTA pipe or copied by hand,
// which makes it usable without a Gmail account.
//
//	<root>/GH_PRINT/0001.eml
//	<root>/SQ_PRINT/0002.eml
type Spool struct {
	root string
	mu   sync.Mutex
}

// NewSpool creates a spool rooted at dir.
func NewSpool(dir string) (*Spool, error) {
	if err := os.MkdirAll(filepath.Join(dir, processedDir), 0750); err != nil {
		return nil, fmt.Errorf("spool: create %s: %w", dir, err)
	}
	return &Spool{root: dir}, nil
}

// Unread implements Client. Files are returned in name order.
func (s *Spool) Unread(_ context.Context, label string, max int) ([]string, error) {
	if label == "" || strings.ContainsAny(label, `/\`) || label == processedDir {
		return nil, fmt.Errorf("spool: invalid label %q", label)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.root, label))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("spool: list %s: %w", label, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".eml") {
			continue
		}
		ids = append(ids, label+"/"+e.Name())
	}
	sort.Strings(ids)
	if max > 0 && len(ids) > max {
		ids = ids[:max]
	}
	return ids, nil
}

// Fetch implements Client.
func (s *Spool) Fetch(_ context.Context, id string) (*Message, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("spool: read %s: %w", id, err)
	}
	m, err := ParseEML(raw)
	if err != nil {
		return nil, fmt.Errorf("spool: %s: %w", id, err)
	}
	m.ID = id
	return m, nil
}

// MarkProcessed implements Client by moving the file out of its label
// directory.
func (s *Spool) MarkProcessed(_ context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dst := filepath.Join(s.root, processedDir, strings.ReplaceAll(id, "/", "_"))
	if err := os.Rename(path, dst); err != nil {
		return fmt.Errorf("spool: mark %s processed: %w", id, err)
	}
	return nil
}

func (s *Spool) path(id string) (string, error) {
	label, name, ok := strings.Cut(id, "/")
	if !ok || label == "" || name == "" || strings.ContainsAny(name, `/\`) || name == ".." || label == ".." {
		return "", fmt.Errorf("spool: invalid message id %q", id)
	}
	return filepath.Join(s.root, label, name), nil
}
