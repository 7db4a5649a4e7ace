package partition

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"surveyrag/types"
)

// LoadImages reads every file with the given extension from dir and returns
// base64-encoded image elements tagged with their source filename. Order
// follows directory enumeration; images are an unordered set downstream.
func LoadImages(dir, ext string) ([]types.Element, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image directory %s: %w", dir, err)
	}

	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	var images []types.Element
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", path, err)
		}

		images = append(images, types.Element{
			Kind:    types.KindImage,
			Content: base64.StdEncoding.EncodeToString(data),
			Source:  entry.Name(),
		})
	}
	return images, nil
}
