// Package bundle splits multi-page PDF bundles into single-page files and
// assembles per-patient PDFs from page selections.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Page is one single-page PDF produced by Split.
type Page struct {
	// Number is the 1-based page number within the source bundle.
	Number int
	// Path is the location of the single-page PDF on disk.
	Path string
	// Name is the file name used when uploading the page.
	Name string
}

// PageCount returns the number of pages in a PDF file.
func PageCount(path string) (int, error) {
	count, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages of %s: %w", path, err)
	}
	return count, nil
}

// Chunk breaks a PDF into files of span pages each under outDir and returns
// the chunk paths in page order. Chunk file names follow pdfcpu's split
// naming: <base>_<page>.pdf for single-page chunks, <base>_<from>-<to>.pdf
// otherwise.
func Chunk(path, outDir string, span int) ([]string, error) {
	if span < 1 {
		return nil, fmt.Errorf("chunk span must be at least 1, got %d", span)
	}
	count, err := PageCount(path)
	if err != nil {
		return nil, err
	}
	if err := api.SplitFile(path, outDir, span, nil); err != nil {
		return nil, fmt.Errorf("failed to split %s: %w", path, err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var chunks []string
	for from := 1; from <= count; from += span {
		to := from + span - 1
		if to > count {
			to = count
		}
		name := fmt.Sprintf("%s_%d.pdf", base, from)
		if to > from {
			name = fmt.Sprintf("%s_%d-%d.pdf", base, from, to)
		}
		chunkPath := filepath.Join(outDir, name)
		if _, err := os.Stat(chunkPath); err != nil {
			return nil, fmt.Errorf("split chunk %d-%d of %s missing: %w", from, to, path, err)
		}
		chunks = append(chunks, chunkPath)
	}
	return chunks, nil
}

// Split breaks a PDF bundle into one file per page under outDir and returns
// the pages in order.
func Split(path, outDir string) ([]Page, error) {
	paths, err := Chunk(path, outDir, 1)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pages := make([]Page, 0, len(paths))
	for i, p := range paths {
		pages = append(pages, Page{
			Number: i + 1,
			Path:   p,
			Name:   fmt.Sprintf("%s-%d.pdf", base, i+1),
		})
	}
	return pages, nil
}
