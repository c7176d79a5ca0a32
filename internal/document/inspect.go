package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Formats recognised by Inspect. FormatUnknown content is still sent for analysis.
const (
	FormatPDF     = "pdf"
	FormatPNG     = "png"
	FormatJPEG    = "jpeg"
	FormatTIFF    = "tiff"
	FormatUnknown = "unknown"
)

var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrCorruptPDF    = errors.New("pdf could not be read")
)

// pdfHeaderWindow is how far into the file the %PDF- marker may appear.
const pdfHeaderWindow = 1024

// Info describes a downloaded invoice file.
type Info struct {
	Format       string
	ContentType  string
	Size         int
	// PageCount is zero when it could not be determined; PageCountErr says why.
	PageCount    int
	PageCountErr error
	SHA256       string
}

func init() {
	// Function instances have a read-only home directory.
	api.DisableConfigDir()
}

// Inspect describes content for logging and archiving. Only empty content is an
// error; an unrecognised format or unreadable PDF is left to the analysis service.
func Inspect(content []byte) (Info, error) {
	if len(content) == 0 {
		return Info{}, ErrEmptyDocument
	}

	info := Info{
		Size:   len(content),
		SHA256: hashContent(content),
	}

	switch {
	case isPDF(content):
		info.Format, info.ContentType = FormatPDF, "application/pdf"
		info.PageCount, info.PageCountErr = countPages(content)
		return info, nil
	// DetectContentType does not sniff TIFF.
	case isTIFF(content):
		info.Format, info.ContentType, info.PageCount = FormatTIFF, "image/tiff", 1
		return info, nil
	}

	info.ContentType = http.DetectContentType(content)
	switch info.ContentType {
	case "image/png":
		info.Format, info.PageCount = FormatPNG, 1
	case "image/jpeg":
		info.Format, info.PageCount = FormatJPEG, 1
	default:
		info.Format = FormatUnknown
	}
	return info, nil
}

// countPages never panics: pdfcpu can panic on malformed cross-reference data.
func countPages(content []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: %v", ErrCorruptPDF, r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err = api.PageCount(bytes.NewReader(content), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptPDF, err)
	}
	return n, nil
}

func isPDF(content []byte) bool {
	head := content
	if len(head) > pdfHeaderWindow {
		head = head[:pdfHeaderWindow]
	}
	return bytes.Contains(head, []byte("%PDF-"))
}

func isTIFF(content []byte) bool {
	return bytes.HasPrefix(content, []byte("II*\x00")) || bytes.HasPrefix(content, []byte("MM\x00*"))
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
