package export

import (
	"context"
	"errors"
	"fmt"

	"inspection-service/internal/domain/inspection"
	"inspection-service/internal/utils"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatXLSX, FormatCSV, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Document is everything an export needs: the report and the photos of the
// site it was filled in for.
type Document struct {
	Site        inspection.Site
	Report      inspection.Report
	Photos      map[inspection.Category]inspection.Image
	CompanyName string
}

// Artifact is a downloadable export.
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Render produces the export in the requested format.
func Render(ctx context.Context, format Format, doc Document) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatXLSX:
		data, err = WriteXLSX(Rows(doc.Report, doc.Photos))
	case FormatCSV:
		data, err = WriteCSV(Rows(doc.Report, doc.Photos))
	case FormatPDF:
		data, err = WritePDF(ctx, doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}

	return &Artifact{
		FileName:    FileName(doc.Site, doc.Report, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// FileName builds "inspection-report_<site>_<date>.<ext>".
func FileName(site inspection.Site, r inspection.Report, format Format) string {
	name := "inspection-report"
	if site.ID != "" {
		name += "_" + string(site.ID)
	}
	if r.Date != "" {
		name += "_" + r.Date
	}
	return utils.SanitizeFilename(name) + "." + string(format)
}
