package extract

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ValidatePDF checks that the file is a readable PDF before it is sent to
// the layout service. A failure here skips the document, not the batch.
func ValidatePDF(path string) error {
	conf := api.LoadConfiguration()
	if err := api.ValidateFile(path, conf); err != nil {
		return fmt.Errorf("invalid pdf %s: %w", path, err)
	}
	return nil
}

// PageCount returns the number of pages of the document.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages of %s: %w", path, err)
	}
	return n, nil
}

// CropHeaderFooter trims running headers and footers so they do not bleed
// into paragraph detection. top and bottom are in points (1 pt = 1/72 inch).
func CropHeaderFooter(inputPath, outputPath string, top, bottom float64) error {
	conf := api.LoadConfiguration()

	pages := []string{"1-"}

	cropStr := fmt.Sprintf("%.2f 0 %.2f 0", top, bottom)

	box, err := model.ParseBox(cropStr, types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to parse crop box: %w", err)
	}

	if err := api.CropFile(inputPath, outputPath, pages, box, conf); err != nil {
		return fmt.Errorf("failed to crop PDF: %w", err)
	}

	return nil
}
