package inspection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the format of the report's sign-off date.
const DateLayout = "2006-01-02"

// ChecklistSize is the number of visual checks on every report.
const ChecklistSize = 7

// ReportTitle is printed on top of every exported report.
const ReportTitle = "Inspection Report Substructure Delivery"

var (
	ErrUnknownField = errors.New("unknown report field")
	ErrCheckIndex   = errors.New("checklist index out of range")
)

// ChecklistItems are the fixed visual checks, in report order.
var ChecklistItems = [ChecklistSize]string{
	"Load properly secured",
	"Delivery without damages",
	"Packaging sufficient and stable enough",
	"Goods according to delivery slip and PO, amount and identity",
	"Suitable machines for unloading/handling present",
	"Delivery slip scanned, uploaded and filed",
	"Inspection Report scanned, uploaded and filed",
}

// Field names a free-text report field. The values match the keys used by the
// web form and downstream consumers.
type Field string

const (
	FieldPlantName           Field = "plantName"
	FieldCheckingCompany     Field = "checkingCompany"
	FieldSupplier            Field = "supplier"
	FieldDeliverySlipNo      Field = "deliverySlipNo"
	FieldLogisticCompany     Field = "logisticCompany"
	FieldContainerNo         Field = "containerNo"
	FieldItem1               Field = "item1"
	FieldAmount1             Field = "amount1"
	FieldItem2               Field = "item2"
	FieldAmount2             Field = "amount2"
	FieldLicensePlateTruck   Field = "licensePlateTruck"
	FieldLicensePlateTrailer Field = "licensePlateTrailer"
	FieldWeather             Field = "weather"
	FieldComments            Field = "comments"
	FieldInspectorName       Field = "inspectorName"
	FieldDate                Field = "date"
)

// CommentField returns the field name of the comment for checklist item i.
func CommentField(i int) Field {
	return Field("comment" + strconv.Itoa(i))
}

// Check is the state of one visual check. N/A is shown on the form but not tracked.
type Check struct {
	OK      bool   `json:"ok"`
	Comment string `json:"comment"`
}

// Report is the inspection form of a session.
type Report struct {
	PlantName           string `json:"plantName"`
	CheckingCompany     string `json:"checkingCompany"`
	Supplier            string `json:"supplier"`
	DeliverySlipNo      string `json:"deliverySlipNo"`
	LogisticCompany     string `json:"logisticCompany"`
	ContainerNo         string `json:"containerNo"`
	Item1               string `json:"item1"`
	Amount1             string `json:"amount1"`
	Item2               string `json:"item2"`
	Amount2             string `json:"amount2"`
	LicensePlateTruck   string `json:"licensePlateTruck"`
	LicensePlateTrailer string `json:"licensePlateTrailer"`
	Weather             string `json:"weather"`

	Checks [ChecklistSize]Check `json:"visualChecks"`

	Comments      string `json:"comments"`
	InspectorName string `json:"inspectorName"`
	Date          string `json:"date"`
}

func (r *Report) field(f Field) (*string, error) {
	switch f {
	case FieldPlantName:
		return &r.PlantName, nil
	case FieldCheckingCompany:
		return &r.CheckingCompany, nil
	case FieldSupplier:
		return &r.Supplier, nil
	case FieldDeliverySlipNo:
		return &r.DeliverySlipNo, nil
	case FieldLogisticCompany:
		return &r.LogisticCompany, nil
	case FieldContainerNo:
		return &r.ContainerNo, nil
	case FieldItem1:
		return &r.Item1, nil
	case FieldAmount1:
		return &r.Amount1, nil
	case FieldItem2:
		return &r.Item2, nil
	case FieldAmount2:
		return &r.Amount2, nil
	case FieldLicensePlateTruck:
		return &r.LicensePlateTruck, nil
	case FieldLicensePlateTrailer:
		return &r.LicensePlateTrailer, nil
	case FieldWeather:
		return &r.Weather, nil
	case FieldComments:
		return &r.Comments, nil
	case FieldInspectorName:
		return &r.InspectorName, nil
	case FieldDate:
		return &r.Date, nil
	}
	if idx, ok := strings.CutPrefix(string(f), "comment"); ok {
		i, err := strconv.Atoi(idx)
		if err == nil && i >= 0 && i < ChecklistSize && CommentField(i) == f {
			return &r.Checks[i].Comment, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
}

// Field returns the current value of a named field.
func (r *Report) Field(f Field) (string, error) {
	p, err := r.field(f)
	if err != nil {
		return "", err
	}
	return *p, nil
}

// SetField stores value verbatim; no coercion or validation is applied.
func (r *Report) SetField(f Field, value string) error {
	p, err := r.field(f)
	if err != nil {
		return err
	}
	*p = value
	return nil
}

// ToggleCheck flips the OK state of checklist item i (zero based).
func (r *Report) ToggleCheck(i int) error {
	if i < 0 || i >= ChecklistSize {
		return fmt.Errorf("%w: %d", ErrCheckIndex, i)
	}
	r.Checks[i].OK = !r.Checks[i].OK
	return nil
}

// ApplyDateDefault sets the date to today when it is empty. It returns false
// and leaves the report alone once a date exists.
func (r *Report) ApplyDateDefault(now time.Time) bool {
	if r.Date != "" {
		return false
	}
	r.Date = now.Format(DateLayout)
	return true
}

// InjectPlate overwrites the plate field matching category. The overwrite is
// unconditional: manual edits made since the last recognition are discarded.
func (r *Report) InjectPlate(category Category, plate string) bool {
	switch category {
	case CategoryTruckPlate:
		r.LicensePlateTruck = plate
	case CategoryTrailerPlate:
		r.LicensePlateTrailer = plate
	default:
		return false
	}
	return true
}
