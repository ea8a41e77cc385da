package inspection

import (
	"bytes"
	"testing"
)

func testImage(b byte) Image {
	return Image{ContentType: ContentTypeJPEG, Data: []byte{0xFF, 0xD8, b}}
}

func TestCaptureStore_SiteIsolation(t *testing.T) {
	var s CaptureStore
	s.SetPhoto("london", CategoryTruckPlate, testImage(1))

	if _, ok := s.GetPhoto("helsinki", CategoryTruckPlate); ok {
		t.Error("photo written for london must not be visible for helsinki")
	}
	if _, ok := s.GetPhoto("london", CategoryTrailerPlate); ok {
		t.Error("photo written for truck-plate must not be visible for trailer-plate")
	}
}

func TestCaptureStore_ReplaceOnWrite(t *testing.T) {
	var s CaptureStore
	s.SetPhoto("london", CategoryDocument, testImage(1))
	s.SetPhoto("london", CategoryDocument, testImage(2))

	got, ok := s.GetPhoto("london", CategoryDocument)
	if !ok {
		t.Fatal("expected a photo")
	}
	if !bytes.Equal(got.Data, testImage(2).Data) {
		t.Errorf("GetPhoto returned %v, want the second write", got.Data)
	}
	if n := len(s.Photos("london")); n != 1 {
		t.Errorf("Photos(london) has %d entries, want 1", n)
	}

	s.SetPlateNumber("london", CategoryTruckPlate, "A")
	s.SetPlateNumber("london", CategoryTruckPlate, "B")
	if p, _ := s.GetPlateNumber("london", CategoryTruckPlate); p != "B" {
		t.Errorf("GetPlateNumber = %q, want %q", p, "B")
	}
}

func TestCaptureStore_ReadsDoNotMutate(t *testing.T) {
	var s CaptureStore
	for i := 0; i < 3; i++ {
		if _, ok := s.GetPhoto("helsinki", CategoryDocument); ok {
			t.Fatal("unexpected photo")
		}
		if _, ok := s.GetPlateNumber("helsinki", CategoryTruckPlate); ok {
			t.Fatal("unexpected plate")
		}
	}
	if s.sites != nil {
		t.Error("reads must not create site entries")
	}

	s.SetPlateNumber("london", CategoryTruckPlate, "AB12CDE")
	first, _ := s.GetPlateNumber("london", CategoryTruckPlate)
	second, _ := s.GetPlateNumber("london", CategoryTruckPlate)
	if first != second {
		t.Errorf("repeated reads differ: %q vs %q", first, second)
	}
}

func TestCaptureStore_EmptySiteProjections(t *testing.T) {
	var s CaptureStore
	photos := s.Photos("helsinki")
	if photos == nil || len(photos) != 0 {
		t.Errorf("Photos(helsinki) = %v, want empty non-nil map", photos)
	}
	plates := s.PlateNumbers("helsinki")
	if plates == nil || len(plates) != 0 {
		t.Errorf("PlateNumbers(helsinki) = %v, want empty non-nil map", plates)
	}
}

func TestCaptureStore_EmptyPlateIsStored(t *testing.T) {
	var s CaptureStore
	s.SetPlateNumber("london", CategoryTrailerPlate, "")
	p, ok := s.GetPlateNumber("london", CategoryTrailerPlate)
	if !ok || p != "" {
		t.Errorf("GetPlateNumber = (%q, %v), want (\"\", true)", p, ok)
	}
}

func TestCaptureStore_ProjectionIsACopy(t *testing.T) {
	var s CaptureStore
	s.SetPlateNumber("london", CategoryTruckPlate, "AB12CDE")
	m := s.PlateNumbers("london")
	m[CategoryTruckPlate] = "CHANGED"
	if p, _ := s.GetPlateNumber("london", CategoryTruckPlate); p != "AB12CDE" {
		t.Errorf("store changed through projection: %q", p)
	}
}

func TestCaptureStore_Clone(t *testing.T) {
	var s CaptureStore
	s.SetPhoto("london", CategoryTruckPlate, testImage(1))
	c := s.Clone()
	c.SetPhoto("london", CategoryTruckPlate, testImage(2))
	c.SetPhoto("helsinki", CategoryDocument, testImage(3))

	got, _ := s.GetPhoto("london", CategoryTruckPlate)
	if !bytes.Equal(got.Data, testImage(1).Data) {
		t.Error("clone writes leaked into the original")
	}
	if _, ok := s.GetPhoto("helsinki", CategoryDocument); ok {
		t.Error("clone created a site in the original")
	}
}
