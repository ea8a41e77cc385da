package inspection

import (
	"errors"
	"testing"
	"time"
)

func TestReport_ApplyDateDefault(t *testing.T) {
	var r Report
	today := time.Date(2024, time.March, 7, 15, 4, 5, 0, time.UTC)

	if !r.ApplyDateDefault(today) {
		t.Fatal("expected the default to be applied to an empty date")
	}
	if r.Date != "2024-03-07" {
		t.Errorf("Date = %q, want %q", r.Date, "2024-03-07")
	}

	if err := r.SetField(FieldDate, "2024-01-01"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	if r.ApplyDateDefault(today.AddDate(0, 0, 1)) {
		t.Error("default must not be applied to a non-empty date")
	}
	if r.Date != "2024-01-01" {
		t.Errorf("Date = %q, want the manually entered value", r.Date)
	}
}

func TestReport_SetField(t *testing.T) {
	tests := []struct {
		field   Field
		value   string
		wantErr bool
	}{
		{FieldPlantName, "Solar Park North", false},
		{FieldDeliverySlipNo, "not-a-number", false},
		{FieldItem2, "Rails", false},
		{FieldAmount2, "12 pcs", false},
		{CommentField(0), "strap loose", false},
		{CommentField(6), "filed", false},
		{"comment7", "x", true},
		{"comment01", "x", true},
		{"comment", "x", true},
		{"visualChecks", "x", true},
		{"", "x", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			var r Report
			err := r.SetField(tt.field, tt.value)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownField) {
					t.Fatalf("SetField(%q) error = %v, want ErrUnknownField", tt.field, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SetField(%q): %v", tt.field, err)
			}
			got, err := r.Field(tt.field)
			if err != nil || got != tt.value {
				t.Errorf("Field(%q) = (%q, %v), want %q", tt.field, got, err, tt.value)
			}
		})
	}
}

func TestReport_CommentFieldsMapToChecks(t *testing.T) {
	var r Report
	if err := r.SetField(CommentField(3), "missing pallet"); err != nil {
		t.Fatal(err)
	}
	if r.Checks[3].Comment != "missing pallet" {
		t.Errorf("Checks[3].Comment = %q", r.Checks[3].Comment)
	}
}

func TestReport_ToggleCheck(t *testing.T) {
	var r Report
	if err := r.ToggleCheck(0); err != nil {
		t.Fatal(err)
	}
	if !r.Checks[0].OK {
		t.Error("item 0 should be checked")
	}
	if err := r.ToggleCheck(0); err != nil {
		t.Fatal(err)
	}
	if r.Checks[0].OK {
		t.Error("item 0 should be unchecked again")
	}

	for _, idx := range []int{-1, ChecklistSize, 100} {
		before := r
		if err := r.ToggleCheck(idx); !errors.Is(err, ErrCheckIndex) {
			t.Errorf("ToggleCheck(%d) error = %v, want ErrCheckIndex", idx, err)
		}
		if r != before {
			t.Errorf("ToggleCheck(%d) changed the report", idx)
		}
	}
}

func TestReport_InjectPlate(t *testing.T) {
	var r Report
	r.InjectPlate(CategoryTruckPlate, "AB12CDE")
	r.InjectPlate(CategoryTrailerPlate, "TR123")
	if r.InjectPlate(CategoryDocument, "IGNORED") {
		t.Error("document category must not be injected")
	}
	if r.LicensePlateTruck != "AB12CDE" || r.LicensePlateTrailer != "TR123" {
		t.Errorf("got truck %q trailer %q", r.LicensePlateTruck, r.LicensePlateTrailer)
	}
}
