package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/lu4p/cat"
)

// extractWithCat handles OpenDocument text and RTF. The library reads from
// a path, so content is staged in a temporary file.
func extractWithCat(content []byte, ext string) (*Result, error) {
	tmp, err := os.CreateTemp("", "docsearch-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("stage %s: %w", ext, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("stage %s: %w", ext, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("stage %s: %w", ext, err)
	}

	text, err := cat.File(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", strings.TrimPrefix(ext, "."), err)
	}
	return &Result{Text: strings.TrimSpace(text)}, nil
}
