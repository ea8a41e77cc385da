package inspection

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnknownEvent = errors.New("unknown event")

// Event is a state change applied to a session with Reduce.
type Event interface {
	EventName() string
}

type SiteSelected struct {
	Site SiteID `json:"site"`
}

type PhotoCaptured struct {
	Site     SiteID   `json:"site"`
	Category Category `json:"category"`
	Image    Image    `json:"image"`
}

type PlateRecognized struct {
	Site     SiteID   `json:"site"`
	Category Category `json:"category"`
	Plate    string   `json:"plate"`
}

type FieldEdited struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

type CheckToggled struct {
	Index int `json:"index"`
}

// ReportOpened is applied once when the report is first shown.
type ReportOpened struct {
	Today time.Time `json:"today"`
}

func (SiteSelected) EventName() string    { return "site_selected" }
func (PhotoCaptured) EventName() string   { return "photo_captured" }
func (PlateRecognized) EventName() string { return "plate_recognized" }
func (FieldEdited) EventName() string     { return "field_edited" }
func (CheckToggled) EventName() string    { return "check_toggled" }
func (ReportOpened) EventName() string    { return "report_opened" }

// State is everything an inspection session holds.
type State struct {
	ActiveSite SiteID
	Captures   CaptureStore
	Report     Report
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	return State{
		ActiveSite: s.ActiveSite,
		Captures:   s.Captures.Clone(),
		Report:     s.Report,
	}
}

// Reduce applies ev to a copy of s and returns the copy. s is never modified,
// and on error the returned state equals s.
func Reduce(s State, ev Event) (State, error) {
	next := s.Clone()

	switch e := ev.(type) {
	case SiteSelected:
		next.ActiveSite = e.Site
		for _, c := range []Category{CategoryTruckPlate, CategoryTrailerPlate} {
			if plate, ok := next.Captures.GetPlateNumber(e.Site, c); ok && plate != "" {
				next.Report.InjectPlate(c, plate)
			}
		}
	case PhotoCaptured:
		next.Captures.SetPhoto(e.Site, e.Category, e.Image)
	case PlateRecognized:
		next.Captures.SetPlateNumber(e.Site, e.Category, e.Plate)
		if e.Site == next.ActiveSite && e.Plate != "" {
			next.Report.InjectPlate(e.Category, e.Plate)
		}
	case FieldEdited:
		if err := next.Report.SetField(e.Field, e.Value); err != nil {
			return s, err
		}
	case CheckToggled:
		if err := next.Report.ToggleCheck(e.Index); err != nil {
			return s, err
		}
	case ReportOpened:
		next.Report.ApplyDateDefault(e.Today)
	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}

	return next, nil
}
