package inspection

import (
	"fmt"
	"strings"
)

// Category tags what a captured photo depicts.
type Category string

const (
	CategoryTruckPlate   Category = "truck-plate"
	CategoryTrailerPlate Category = "trailer-plate"
	CategoryDamagedGoods Category = "damaged-goods"
	CategoryDocument     Category = "document"
)

// Categories returns every category in display order.
func Categories() []Category {
	return []Category{
		CategoryTruckPlate,
		CategoryTrailerPlate,
		CategoryDamagedGoods,
		CategoryDocument,
	}
}

func (c Category) String() string {
	return string(c)
}

// IsValid returns true if c is one of the fixed categories.
func (c Category) IsValid() bool {
	switch c {
	case CategoryTruckPlate, CategoryTrailerPlate, CategoryDamagedGoods, CategoryDocument:
		return true
	}
	return false
}

// IsPlate returns true for categories whose photos are fed to plate recognition.
func (c Category) IsPlate() bool {
	return c == CategoryTruckPlate || c == CategoryTrailerPlate
}

// Label is the human readable name shown next to the capture button.
func (c Category) Label() string {
	switch c {
	case CategoryTruckPlate:
		return "Truck License Plate"
	case CategoryTrailerPlate:
		return "Trailer License Plate"
	case CategoryDamagedGoods:
		return "Damaged Goods"
	case CategoryDocument:
		return "Document"
	}
	return string(c)
}

// ParseCategory accepts the canonical names as well as the short forms
// older front-ends send ("truck", "trailer", "damaged").
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "truck-plate", "truck":
		return CategoryTruckPlate, nil
	case "trailer-plate", "trailer":
		return CategoryTrailerPlate, nil
	case "damaged-goods", "damaged":
		return CategoryDamagedGoods, nil
	case "document":
		return CategoryDocument, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}
