package bundle

import (
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Assemble writes a PDF containing only the selected pages of src, in the
// order given.
func Assemble(src, dst string, pages []int) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages selected for %s", dst)
	}
	selection := make([]string, len(pages))
	for i, p := range pages {
		selection[i] = strconv.Itoa(p)
	}
	if err := api.TrimFile(src, dst, selection, nil); err != nil {
		return fmt.Errorf("failed to assemble %s: %w", dst, err)
	}
	return nil
}
