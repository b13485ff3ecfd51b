package spot

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Issue describes one invalid field.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a payload.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.Field + ": " + is.Message
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

// CreateInput is the public submission payload. Any status, id or creation
// time sent by the client has no field here and is ignored.
type CreateInput struct {
	Type         Kind     `json:"type" validate:"required,oneof=ponton association"`
	Name         string   `json:"name" validate:"required,max=200"`
	Lat          *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng          *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
	Description  string   `json:"description" validate:"max=2000"`
	SubmittedBy  string   `json:"submittedBy" validate:"required,max=100"`
	ContactEmail string   `json:"contactEmail" validate:"omitempty,email,max=254"`
	ImageURL     string   `json:"imageUrl" validate:"omitempty,url,max=2048"`

	HeightCm *float64 `json:"heightCm" validate:"required_if=Type ponton,omitnil,gt=0"`
	LengthM  *float64 `json:"lengthM" validate:"required_if=Type ponton,omitnil,gt=0"`
	Access   Access   `json:"access" validate:"required_if=Type ponton,omitempty,oneof=autorise tolere"`
	Address  string   `json:"address" validate:"required_if=Type ponton,max=500"`

	URL     string `json:"url" validate:"omitempty,url,max=2048"`
	Website string `json:"website" validate:"omitempty,url,max=2048"`
}

// Validate trims string fields and checks every constraint.
// It returns a *ValidationError listing all issues.
func (in *CreateInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.SubmittedBy = strings.TrimSpace(in.SubmittedBy)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Address = strings.TrimSpace(in.Address)
	in.URL = strings.TrimSpace(in.URL)
	in.Website = strings.TrimSpace(in.Website)

	return toValidationError(validate.Struct(in))
}

// Patch is an admin correction. Only the fields listed here can be changed;
// a nil field is left untouched.
type Patch struct {
	Name           *string  `json:"name" validate:"omitnil,min=1,max=200"`
	Lat            *float64 `json:"lat" validate:"omitnil,gte=-90,lte=90"`
	Lng            *float64 `json:"lng" validate:"omitnil,gte=-180,lte=180"`
	Description    *string  `json:"description" validate:"omitnil,max=2000"`
	ImageURL       *string  `json:"imageUrl" validate:"-"`
	ContactEmail   *string  `json:"contactEmail" validate:"-"`
	HeightCm       *float64 `json:"heightCm" validate:"omitnil,gt=0"`
	LengthM        *float64 `json:"lengthM" validate:"omitnil,gt=0"`
	Access         *Access  `json:"access" validate:"omitnil,oneof=autorise tolere"`
	Address        *string  `json:"address" validate:"omitnil,min=1,max=500"`
	URL            *string  `json:"url" validate:"-"`
	Website        *string  `json:"website" validate:"-"`
	Type           *Kind    `json:"type" validate:"omitnil,oneof=ponton association"`
	Status         *Status  `json:"status" validate:"omitnil,oneof=pending approved rejected"`
	ModerationNote *string  `json:"moderationNote" validate:"omitnil,max=2000"`
}

// Empty reports whether the patch changes nothing.
func (p *Patch) Empty() bool {
	return *p == Patch{}
}

// Validate trims string fields and checks every present field.
func (p *Patch) Validate() error {
	for _, s := range []*string{p.Name, p.Description, p.ImageURL, p.ContactEmail, p.Address, p.URL, p.Website, p.ModerationNote} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}

	issues := p.clearableIssues()
	err := toValidationError(validate.Struct(p))
	if err == nil {
		if len(issues) == 0 {
			return nil
		}
		return &ValidationError{Issues: issues}
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	verr.Issues = append(verr.Issues, issues...)
	return verr
}

// clearableIssues checks the optional link and contact fields. An empty
// string clears the stored value; anything else must be well formed.
func (p *Patch) clearableIssues() []Issue {
	var out []Issue
	for _, f := range []struct {
		name  string
		value *string
		rules string
	}{
		{"imageUrl", p.ImageURL, "url,max=2048"},
		{"contactEmail", p.ContactEmail, "email,max=254"},
		{"url", p.URL, "url,max=2048"},
		{"website", p.Website, "url,max=2048"},
	} {
		if f.value == nil || *f.value == "" {
			continue
		}
		var verrs validator.ValidationErrors
		if err := validate.Var(*f.value, f.rules); errors.As(err, &verrs) {
			out = append(out, Issue{Field: f.name, Message: message(verrs[0])})
		}
	}
	return out
}

// Apply merges the patch into s.
func (p *Patch) Apply(s *Spot) {
	setString(&s.Name, p.Name)
	setFloat(&s.Lat, p.Lat)
	setFloat(&s.Lng, p.Lng)
	setString(&s.Description, p.Description)
	setString(&s.ImageURL, p.ImageURL)
	setString(&s.ContactEmail, p.ContactEmail)
	setFloat(&s.HeightCm, p.HeightCm)
	setFloat(&s.LengthM, p.LengthM)
	if p.Access != nil {
		s.Access = *p.Access
	}
	setString(&s.Address, p.Address)
	setString(&s.URL, p.URL)
	setString(&s.Website, p.Website)
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	setString(&s.ModerationNote, p.ModerationNote)
}

// Fields returns the JSON names of the fields present in the patch.
func (p *Patch) Fields() []string {
	var out []string
	v := reflect.ValueOf(p).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if !v.Field(i).IsNil() {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
			out = append(out, name)
		}
	}
	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Issues: make([]Issue, 0, len(verrs))}
	for _, fe := range verrs {
		out.Issues = append(out.Issues, Issue{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required for type ponton"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "lte":
		return fmt.Sprintf("must be between %s", coordinateRange(fe.Field()))
	case "min":
		return "must not be empty"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}

func coordinateRange(field string) string {
	if field == "lat" {
		return "-90 and 90"
	}
	return "-180 and 180"
}
