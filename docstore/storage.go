package docstore

import (
	"fmt"
	"os"
	"path/filepath"
)

const signedDocsDir = "SignedDocs"

// Store persists signed artifacts.
type Store interface {
	SaveSignedDocument(packageID string, content []byte) (string, error)
}

// FileStore writes signed documents under a document root. The path is
// deterministic per package id, so repeated saves overwrite the same file.
type FileStore struct {
	root string
}

// NewFileStore creates a FileStore rooted at root.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("docstore: empty document root")
	}
	if err := os.MkdirAll(filepath.Join(root, signedDocsDir), 0o755); err != nil {
		return nil, fmt.Errorf("docstore: create signed docs dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

// SaveSignedDocument writes the artifact to <root>/SignedDocs/<packageID>.pdf
// via a temp file and rename, so a crash mid-write never leaves a truncated
// artifact at the final path.
func (s *FileStore) SaveSignedDocument(packageID string, content []byte) (string, error) {
	if packageID == "" {
		return "", fmt.Errorf("docstore: empty package id")
	}

	final := filepath.Join(s.root, signedDocsDir, packageID+".pdf")

	tmp, err := os.CreateTemp(filepath.Join(s.root, signedDocsDir), packageID+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("docstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("docstore: write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("docstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("docstore: move artifact into place: %w", err)
	}

	return final, nil
}
