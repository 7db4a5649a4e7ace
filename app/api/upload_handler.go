package api

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UploadHandler drops uploaded PDFs into the ingest source directory, where
// the ingestion service picks them up.
type UploadHandler struct {
	sourceDir string
}

func NewUploadHandler(sourceDir string) *UploadHandler {
	return &UploadHandler{
		sourceDir: sourceDir,
	}
}

func (h *UploadHandler) HandlePDF(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}

	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		return NewError(fiber.StatusUnsupportedMediaType, "only PDF files are accepted")
	}

	path := filepath.Join(h.sourceDir, filepath.Base(file.Filename))
	if err := c.SaveFile(file, path); err != nil {
		return err
	}
	fmt.Printf("[UPLOAD] File successfully saved to: %s\n", path)

	return c.JSON(fiber.Map{"result": "ok"})
}
