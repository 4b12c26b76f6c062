package plan

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Requirements is the client brief driving generation. It is created
// once by the caller and read-only from then on.
type Requirements struct {
	LandWidth    float64 `json:"land_width" validate:"gt=0"`
	LandDepth    float64 `json:"land_depth" validate:"gt=0"`
	Bedrooms     int     `json:"bedrooms" validate:"gte=0,lte=8"`
	Bathrooms    float64 `json:"bathrooms" validate:"gte=0,lte=6,halfstep"`
	GarageSpaces int     `json:"garage_spaces" validate:"gte=0,lte=4"`
	Storeys      int     `json:"storeys" validate:"oneof=1 2"`
	Style        string  `json:"style,omitempty"`
	OpenPlan     bool    `json:"open_plan"`
	Theatre      bool    `json:"theatre"`
	Study        bool    `json:"study"`
	Alfresco     bool    `json:"alfresco"`
	HomeOffice   bool    `json:"home_office"`
	State        string  `json:"state,omitempty"`
	Council      string  `json:"council,omitempty"`
}

// RequirementsError reports a malformed requirements spec. It is
// distinct from a compliance issue: the pipeline rejects the request
// before generation begins.
type RequirementsError struct {
	Fields []string
}

func (e *RequirementsError) Error() string {
	return "invalid requirements: " + strings.Join(e.Fields, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Bathroom counts move in half-bathroom steps (a powder room is 0.5).
	_ = v.RegisterValidation("halfstep", func(fl validator.FieldLevel) bool {
		val := fl.Field().Float()
		scaled := val * 2
		return math.Abs(scaled-math.Round(scaled)) < 1e-9
	})
	return v
}

// Validate checks the domain constraints on the spec. A nil return
// means generation may proceed.
func (r *Requirements) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate requirements: %w", err)
	}

	re := &RequirementsError{}
	for _, fe := range verrs {
		re.Fields = append(re.Fields, describeFieldError(fe))
	}
	return re
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "halfstep":
		return fmt.Sprintf("%s must be a multiple of 0.5", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
