package esign

import (
	"fmt"
	"os"
)

// FileTemplate is a TemplateFiller that reads the template document from
// disk. Field population is delegated to the document tooling that prepares
// the template; this implementation returns the template bytes as-is, which
// is sufficient for extraction-based signing where the provider anchors
// fields by name.
type FileTemplate struct {
	path string
}

// NewFileTemplate returns a filler backed by the template at path.
func NewFileTemplate(path string) *FileTemplate {
	return &FileTemplate{path: path}
}

// Fill returns the template document bytes.
func (t *FileTemplate) Fill(_ map[string]string) ([]byte, error) {
	content, err := os.ReadFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("esign: read template %s: %w", t.path, err)
	}
	return content, nil
}
