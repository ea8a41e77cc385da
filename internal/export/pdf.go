package export

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"inspection-service/internal/domain/inspection"
)

const (
	// PageMargin is the distance of the rendered report from the page's top-left corner.
	PageMargin = 10.0

	// canvasWidth is the natural width of the report layout before it is scaled
	// onto the page, roughly the width of the form on a tablet.
	canvasWidth = 250.0

	rowHeight   = 7.0
	lineHeight  = 5.0
	thumbWidth  = 58.0
	thumbHeight = 29.0

	// footerHeight is what follows the comments block: gap, thumbnail heading,
	// thumbnails and the sign-off fields.
	footerHeight = 3 + 8 + thumbHeight + 6 + 5 + rowHeight
)

// WritePDF renders the report layout onto a single A4 page. The layout is
// drawn at canvas size and then scaled to the page width.
func WritePDF(ctx context.Context, doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(inspection.ReportTitle, true)
	pdf.SetCreator("inspection-service", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.AddPage()

	r := newRenderer(pdf)
	pdf.TransformBegin()
	pdf.TransformScale(r.scale*100, r.scale*100, PageMargin, PageMargin)
	r.draw(doc)
	pdf.TransformEnd()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type renderer struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	x, y  float64
	scale float64

	// bottom is the lowest canvas y that still lands inside the page margin.
	bottom float64
}

func newRenderer(pdf *fpdf.Fpdf) *renderer {
	pageW, pageH := pdf.GetPageSize()
	// Height is irrelevant for the scale; the layout reports its own.
	placement := FitWidth(canvasWidth, 1, pageW, PageMargin)
	scale := placement.W / canvasWidth
	return &renderer{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		x:      PageMargin,
		y:      PageMargin,
		scale:  scale,
		bottom: PageMargin + (pageH-2*PageMargin)/scale,
	}
}

func (r *renderer) draw(doc Document) {
	rep := doc.Report
	w := canvasWidth

	r.pdf.SetDrawColor(147, 197, 253)
	r.pdf.SetFont("Helvetica", "B", 14)
	r.pdf.SetXY(r.x, r.y)
	r.pdf.CellFormat(w, 10, r.tr(inspection.ReportTitle), "B", 1, "C", false, 0, "")
	r.y += 13

	r.labelled(0, w/2-2, "PV-Plant Name/Location:", rep.PlantName)
	r.labelled(w/2+2, w/2-2, "Checking Company:", rep.CheckingCompany)
	r.y += 2 * rowHeight
	if doc.CompanyName != "" {
		r.pdf.SetFont("Helvetica", "B", 10)
		r.pdf.SetXY(r.x, r.y)
		r.pdf.CellFormat(w, 6, r.tr(doc.CompanyName), "", 0, "R", false, 0, "")
		r.y += 7
	}

	r.heading("Delivery Details")
	cols := []float64{50, 90, 60, 50}
	r.tableRow(cols, true, "Field", "Value", "Item:", "Amount:")
	r.tableRow(cols, false, "Supplier:", rep.Supplier, rep.Item1, rep.Amount1)
	r.tableRow(cols, false, "Delivery Slip No.:", rep.DeliverySlipNo, rep.Item2, rep.Amount2)
	r.tableRow(cols, false, "Logistic Comp.:", rep.LogisticCompany, "", "")
	r.tableRow(cols, false, "Container No.:", rep.ContainerNo, "", "")
	r.tableRow(cols, false, "Licence plate truck:", rep.LicensePlateTruck, "", "")
	r.tableRow(cols, false, "Licence plate trailer:", rep.LicensePlateTrailer, "", "")
	r.tableRow(cols, false, "Weather:", rep.Weather, "", "")
	r.y += 3

	if img, ok := doc.Photos[inspection.CategoryDocument]; ok && !img.IsZero() {
		r.heading("Document Image:")
		r.image("document", img, Box{X: r.x, Y: r.y, W: 80, H: 40})
		r.y += 43
	}

	r.heading(VisualChecksHeader)
	checkCols := []float64{12, 128, 14, 14, 82}
	r.tableRow(checkCols, true, "No.", "Description", "ok", "N/A", "Comment")
	for i, desc := range inspection.ChecklistItems {
		ok := ""
		if rep.Checks[i].OK {
			ok = "X"
		}
		r.tableRow(checkCols, false, strconv.Itoa(i+1), desc, ok, "", rep.Checks[i].Comment)
	}
	r.y += 3

	r.heading("Comments")
	r.pdf.SetFont("Helvetica", "", 9)
	maxLines := int((r.bottom - r.y - footerHeight) / lineHeight)
	lines := r.wrap(rep.Comments, w-2, maxLines)
	r.pdf.Rect(r.x, r.y, w, float64(len(lines))*lineHeight, "D")
	for _, line := range lines {
		r.pdf.SetXY(r.x, r.y)
		r.pdf.CellFormat(w, lineHeight, line, "", 0, "L", false, 0, "")
		r.y += lineHeight
	}
	r.y += 3

	r.heading("Pictures with license plate of the truck / container No. / loading / damages etc.")
	x := r.x
	for _, c := range []inspection.Category{
		inspection.CategoryTruckPlate,
		inspection.CategoryTrailerPlate,
		inspection.CategoryDamagedGoods,
	} {
		img, ok := doc.Photos[c]
		if !ok || img.IsZero() {
			continue
		}
		slot := Box{X: x, Y: r.y, W: thumbWidth, H: thumbHeight}
		r.pdf.Rect(slot.X, slot.Y, slot.W, slot.H, "D")
		r.image(string(c), img, slot)
		x += thumbWidth + 4
	}
	r.y += thumbHeight + 6

	r.labelled(0, w/2-2, "Printed Name:", rep.InspectorName)
	r.labelled(w/2+2, w/2-2, "Date/Signature:", rep.Date)
	r.y += 5 + rowHeight
}

// wrap splits text into lines of width w using the current font. Text that
// needs more than maxLines is cut and the last kept line ends in "...".
func (r *renderer) wrap(text string, w float64, maxLines int) []string {
	if maxLines < 1 {
		maxLines = 1
	}
	text = r.tr(text)
	if text == "" {
		return []string{""}
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		if para == "" {
			lines = append(lines, "")
			continue
		}
		lines = append(lines, r.pdf.SplitText(para, w)...)
	}
	if len(lines) <= maxLines {
		return lines
	}

	lines = lines[:maxLines]
	const more = "..."
	last := lines[maxLines-1]
	if cut := r.pdf.SplitText(last, w-r.pdf.GetStringWidth(more)); len(cut) > 0 {
		last = cut[0]
	} else {
		last = ""
	}
	lines[maxLines-1] = last + more
	return lines
}

func (r *renderer) heading(text string) {
	r.pdf.SetFont("Helvetica", "B", 11)
	r.pdf.SetXY(r.x, r.y)
	r.pdf.CellFormat(canvasWidth, 7, r.tr(text), "", 0, "L", false, 0, "")
	r.y += 8
}

func (r *renderer) labelled(dx, w float64, label, value string) {
	r.pdf.SetXY(r.x+dx, r.y)
	r.pdf.SetFont("Helvetica", "B", 9)
	r.pdf.CellFormat(w, 5, r.tr(label), "", 0, "L", false, 0, "")
	r.pdf.SetXY(r.x+dx, r.y+5)
	r.pdf.SetFont("Helvetica", "", 9)
	r.pdf.CellFormat(w, rowHeight, r.tr(value), "1", 0, "L", false, 0, "")
}

func (r *renderer) tableRow(widths []float64, header bool, cells ...string) {
	if header {
		r.pdf.SetFont("Helvetica", "B", 8)
		r.pdf.SetFillColor(219, 234, 254)
	} else {
		r.pdf.SetFont("Helvetica", "", 8)
	}
	x := r.x
	for i, w := range widths {
		text := ""
		if i < len(cells) {
			text = r.fit(cells[i], w-2)
		}
		r.pdf.SetXY(x, r.y)
		r.pdf.CellFormat(w, rowHeight, text, "1", 0, "L", header, 0, "")
		x += w
	}
	r.y += rowHeight
}

// fit truncates text to one line of the given width.
func (r *renderer) fit(text string, w float64) string {
	text = r.tr(text)
	if text == "" {
		return ""
	}
	lines := r.pdf.SplitText(text, w)
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

func (r *renderer) image(name string, img inspection.Image, slot Box) {
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	if img.ContentType == inspection.ContentTypePNG {
		opts.ImageType = "PNG"
	}
	key := name + "-" + img.ID.String()
	info := r.pdf.RegisterImageOptionsReader(key, opts, bytes.NewReader(img.Data))
	if info == nil {
		return
	}
	w, h := img.Width, img.Height
	if w == 0 || h == 0 {
		w, h = int(info.Width()), int(info.Height())
	}
	box := FitInside(float64(w), float64(h), slot)
	r.pdf.ImageOptions(key, box.X, box.Y, box.W, box.H, false, opts, 0, "")
}
