// Package export renders stored proposals to HTML and PDF.
package export

import "errors"

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// Request contains parameters for an export operation
type Request struct {
	ProposalID string
	OwnerID    string
	Format     Format
}

// Result contains the export output. URL and ObjectKey are set when the file
// was uploaded to object storage.
type Result struct {
	Data      []byte
	Filename  string
	MimeType  string
	ObjectKey string
	URL       string
}

var (
	// ErrUnsupportedFormat is returned for formats other than pdf and html.
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
