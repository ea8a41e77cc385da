package export

import (
	"fmt"
	"strconv"

	"inspection-service/internal/domain/inspection"
)

// PhotoAttached marks a photo that exists; image data never goes into tabular output.
const PhotoAttached = "[image attached]"

// VisualChecksHeader introduces the checklist block.
const VisualChecksHeader = "Visual checks of delivery"

// Row is one Field/Value line of the tabular export.
type Row struct {
	Field string
	Value string
}

// Rows flattens a report and the active site's photos into export rows. The
// order is fixed; downstream consumers depend on it.
func Rows(r inspection.Report, photos map[inspection.Category]inspection.Image) []Row {
	rows := []Row{
		{"PV-Plant Name/Location", r.PlantName},
		{"Checking Company", r.CheckingCompany},
		{"Supplier", r.Supplier},
		{"Delivery Slip No.", r.DeliverySlipNo},
		{"Logistic Company", r.LogisticCompany},
		{"Container No.", r.ContainerNo},
		{"License Plate Truck", r.LicensePlateTruck},
		{"License Plate Trailer", r.LicensePlateTrailer},
		{"Weather", r.Weather},
		{"Inspector Name", r.InspectorName},
		{"Date", r.Date},
		{"Comments", r.Comments},
		{"", ""},
		{VisualChecksHeader, ""},
		{"No.", "Description | OK | N/A | Comment"},
	}

	for i, desc := range inspection.ChecklistItems {
		rows = append(rows, Row{
			Field: strconv.Itoa(i + 1),
			Value: ChecklistValue(desc, r.Checks[i]),
		})
	}

	rows = append(rows,
		Row{"Truck Plate Photo", presence(photos, inspection.CategoryTruckPlate)},
		Row{"Trailer Plate Photo", presence(photos, inspection.CategoryTrailerPlate)},
		Row{"Damaged Goods Photo", presence(photos, inspection.CategoryDamagedGoods)},
	)
	return rows
}

// ChecklistValue renders "<description> | <OK or empty> |  | <comment>". The
// empty third column is N/A, which is not tracked.
func ChecklistValue(description string, c inspection.Check) string {
	ok := ""
	if c.OK {
		ok = "OK"
	}
	return fmt.Sprintf("%s | %s |  | %s", description, ok, c.Comment)
}

func presence(photos map[inspection.Category]inspection.Image, c inspection.Category) string {
	if img, ok := photos[c]; ok && !img.IsZero() {
		return PhotoAttached
	}
	return ""
}
