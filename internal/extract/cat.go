package extract

import (
	"fmt"

	"github.com/lu4p/cat"
)

// extractCat reads RTF and ODT documents. The format is detected from content.
func extractCat(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return text, nil
}
