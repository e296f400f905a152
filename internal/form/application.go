// Package form decodes and validates submitted application forms.
package form

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/bjarke-xyz/course-applications/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

const dateLayout = "2006-01-02"

var (
	decoder  = newDecoder()
	validate = newValidator()
)

// Application mirrors the HTML form. All fields are kept as submitted text so
// a failed submission can be redisplayed verbatim.
type Application struct {
	Title         string `schema:"title" validate:"required,max=200"`
	Link          string `schema:"link" validate:"required,http_url"`
	Price         string `schema:"price"`
	StartDate     string `schema:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Quarter       string `schema:"quarter" validate:"required,oneof=1 2 3 4"`
	Justification string `schema:"justification" validate:"required"`
}

// FromApplication fills a form from a stored record. Used as the baseline an
// update submission is decoded over.
func FromApplication(app domain.Application) Application {
	f := Application{
		Title:         app.Title,
		Link:          app.Link,
		Justification: app.Justification,
	}
	if app.Price != nil {
		f.Price = *app.Price
	}
	if app.StartDate != nil {
		f.StartDate = app.StartDate.Format(dateLayout)
	}
	if app.Quarter.Valid() {
		f.Quarter = app.Quarter.Code()
	}
	return f
}

// Decode reads the request body into f. Keys missing from the submission keep
// whatever value f already holds.
func Decode(r *http.Request, f *Application) error {
	switch mediaType(r) {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return fmt.Errorf("parse multipart form: %w", err)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("parse form: %w", err)
		}
	}
	if err := decoder.Decode(f, r.PostForm); err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	f.trim()
	return nil
}

func (f *Application) trim() {
	f.Title = strings.TrimSpace(f.Title)
	f.Link = strings.TrimSpace(f.Link)
	f.Price = strings.TrimSpace(f.Price)
	f.StartDate = strings.TrimSpace(f.StartDate)
	f.Quarter = strings.TrimSpace(f.Quarter)
	f.Justification = strings.TrimSpace(f.Justification)
}

// Validate checks every field and reports all failures together as a
// *domain.ValidationError. On success the typed fields are returned with an
// empty price or start date mapped to nil.
func (f Application) Validate() (domain.ApplicationFields, error) {
	verr := domain.NewValidationError()
	err := validate.Struct(f)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return domain.ApplicationFields{}, err
		}
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), message(fe))
		}
		return domain.ApplicationFields{}, verr
	}

	quarter, err := domain.ParseQuarter(f.Quarter)
	if err != nil {
		verr.Add("quarter", messageInvalidChoice)
	}
	fields := domain.ApplicationFields{
		Title:         f.Title,
		Link:          f.Link,
		Quarter:       quarter,
		Justification: f.Justification,
	}
	if f.Price != "" {
		price := f.Price
		fields.Price = &price
	}
	if f.StartDate != "" {
		startDate, err := time.Parse(dateLayout, f.StartDate)
		if err != nil {
			verr.Add("start_date", messageInvalidDate)
		} else {
			fields.StartDate = &startDate
		}
	}
	if verr.HasErrors() {
		return domain.ApplicationFields{}, verr
	}
	return fields, nil
}

const (
	messageRequired      = "This field is required."
	messageInvalidURL    = "Enter a valid URL."
	messageInvalidDate   = "Enter a valid date."
	messageInvalidChoice = "Select a valid choice."
)

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return messageRequired
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "http_url":
		return messageInvalidURL
	case "datetime":
		return messageInvalidDate
	case "oneof":
		return messageInvalidChoice
	default:
		return "Invalid value."
	}
}

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	// a submitted empty value clears the field; absent keys are left alone
	d.ZeroEmpty(true)
	return d
}

func newValidator() *validator.Validate {
	v := validator.New()
	// report errors under the form field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("schema"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func mediaType(r *http.Request) string {
	return strings.Split(r.Header.Get("Content-Type"), ";")[0]
}
