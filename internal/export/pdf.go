package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-pdf/fpdf"

	"github.com/kidobra/kidobra-server/internal/domain"
	"github.com/kidobra/kidobra-server/internal/errors"
	"github.com/kidobra/kidobra-server/internal/normalize"
)

// A4 page size in points.
const (
	pageWidth  = 595.28
	pageHeight = 841.89
)

// Exporter renders ebooks as PDFs: one A4 page per activity, image drawn
// full-bleed in sequence order.
type Exporter struct {
	fetcher *ImageFetcher
	logger  *slog.Logger
}

// NewExporter creates a PDF exporter.
func NewExporter(fetcher *ImageFetcher, logger *slog.Logger) *Exporter {
	return &Exporter{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Filename returns the download filename for an ebook's PDF.
func Filename(ebook *domain.Ebook) string {
	return normalize.Filename(ebook.Name) + ".pdf"
}

// Export writes the ebook's PDF to w.
// An ebook with no activities is a validation error, not an empty PDF.
func (e *Exporter) Export(ctx context.Context, ebook *domain.Ebook, w io.Writer) error {
	if len(ebook.Activities) == 0 {
		return errors.Validation("ebook has no activities to export")
	}

	pdf := fpdf.New(fpdf.OrientationPortrait, fpdf.UnitPoint, fpdf.PageSizeA4, "")
	pdf.SetAutoPageBreak(false, 0)

	for i, activity := range ebook.Activities {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, imageType, err := e.fetcher.Fetch(ctx, activity.ImageURL)
		if err != nil {
			return errors.Wrap(err, errors.CodeInternal,
				fmt.Sprintf("failed to fetch image for activity %s", activity.ID))
		}

		name := fmt.Sprintf("activity-%d-%s", i, activity.ID)
		opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))

		pdf.AddPage()
		pdf.ImageOptions(name, 0, 0, pageWidth, pageHeight, false, opts, 0, "")

		if pdf.Err() {
			return errors.Internal(fmt.Sprintf("render page for activity %s: %v", activity.ID, pdf.Error()))
		}
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "write pdf output")
	}

	if e.logger != nil {
		e.logger.Info("ebook exported",
			"ebook_id", ebook.ID,
			"pages", len(ebook.Activities),
		)
	}

	return nil
}
