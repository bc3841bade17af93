// Package bind decodes and validates JSON request bodies for handlers
package bind

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"
	"sync"

	perr "shipledger/internal/platform/errors"
	"shipledger/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldLevel aliases validator.FieldLevel
type FieldLevel = validator.FieldLevel

// FieldError aliases validator.FieldError
type FieldError = validator.FieldError

// ValidatorSvc bundles the process validator with its translator
type ValidatorSvc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	initOnce sync.Once
	shared   *ValidatorSvc

	// seam so trailing-data detection is testable
	jsonMore = func(dec *json.Decoder) bool { return dec.More() }
)

// issueKeyRe matches tracker keys like APP-123
var issueKeyRe = regexp.MustCompile(`^[A-Z][A-Z0-9]+-[1-9][0-9]*$`)

// Init builds the singleton validator: english translations, json tag
// names in messages, and the tracker-specific issue_key tag.
func Init() *ValidatorSvc {
	initOnce.Do(func() {
		locale := en.New()
		trans, _ := ut.New(locale, locale).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		_ = en_translations.RegisterDefaultTranslations(v, trans)
		shortMessage(v, trans, "min", "{0} must be at least {1}", true)
		shortMessage(v, trans, "max", "{0} must be at most {1}", true)
		registerIssueKey(v, trans)

		shared = &ValidatorSvc{Validator: v, Translator: trans}
	})

	return shared
}

// jsonFieldName reports a struct field by its json tag so validation
// messages match what the client actually sent
func jsonFieldName(fld reflect.StructField) string {
	tag := fld.Tag.Get("json")
	if tag == "-" || tag == "" {
		return fld.Name
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	return tag
}

// Get returns the validator singleton, building it on first use
func Get() *ValidatorSvc {
	if shared != nil {
		return shared
	}
	return Init()
}

// RegisterValidation adds a custom tag to the singleton validator
func RegisterValidation(tag string, fn validator.Func) error {
	return Get().Validator.RegisterValidation(tag, fn)
}

// JSONOptions tunes body parsing. The zero value is not the default;
// callers omitting options get 1MB max, unknown fields rejected, and
// empty bodies rejected on mutating verbs.
type JSONOptions struct {
	MaxBytes        int64
	DisallowUnknown bool
	AllowEmptyBody  bool
}

func defaultJSONOptions() JSONOptions {
	return JSONOptions{MaxBytes: 1 << 20, DisallowUnknown: true}
}

// ParseJSON decodes the body into T, validates it, and maps failures
// onto project error codes. GET/DELETE/HEAD/OPTIONS tolerate an empty
// body; other verbs get a validation error unless AllowEmptyBody is set.
func ParseJSON[T any](r *http.Request, opts ...JSONOptions) (T, error) {
	var zero T

	o := defaultJSONOptions()
	if len(opts) > 0 {
		o = opts[0]
	}

	defer func() {
		if cerr := r.Body.Close(); cerr != nil {
			logger.Get().Error().Err(cerr).Msg("request body close failed")
		}
	}()

	var reader io.Reader = r.Body
	if !o.AllowEmptyBody {
		// probe one byte so a truly empty body is distinguishable from {}
		buf := make([]byte, 1)
		n, _ := r.Body.Read(buf)
		if n == 0 {
			if bodylessMethod(r.Method) {
				return zero, nil
			}
			return zero, perr.JSONErrf("empty body")
		}
		reader = io.MultiReader(bytes.NewReader(buf[:n]), r.Body)
	}
	if o.MaxBytes > 0 {
		reader = io.LimitReader(reader, o.MaxBytes)
	}

	dec := json.NewDecoder(reader)
	if o.DisallowUnknown {
		dec.DisallowUnknownFields()
	}

	var dst T
	switch err := dec.Decode(&dst); {
	case err == nil:
	case o.AllowEmptyBody && errors.Is(err, io.EOF):
		return dst, nil
	default:
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if jsonMore(dec) {
		return zero, perr.JSONErrf("unexpected trailing data")
	}

	if err := Get().Validator.Struct(dst); err != nil {
		if inv, ok := err.(*validator.InvalidValidationError); ok {
			logger.Get().Error().Err(inv).Msg("validator internal error")
			return zero, perr.JSONErrf("validation error")
		}
		_, msg := ValidationFieldAndMessage(err)
		return zero, perr.Newf(perr.ErrorCodeValidation, "%s", msg)
	}

	return dst, nil
}

// bodylessMethod reports verbs that legitimately arrive without a body
func bodylessMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodDelete, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// ValidationFieldAndMessage pulls the first failing field and its
// translated message out of a validator error.
func ValidationFieldAndMessage(err error) (field, message string) {
	switch e := err.(type) {
	case nil:
		return "", ""
	case *validator.InvalidValidationError:
		return "", e.Error()
	case validator.ValidationErrors:
		for _, fe := range e {
			return fe.Field(), fe.Translate(Get().Translator)
		}
	}
	return "", err.Error()
}

// shortMessage overrides a builtin tag's translation with a terse template
func shortMessage(v *validator.Validate, trans ut.Translator, tag, tmpl string, override bool) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, tmpl, override)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}

// registerIssueKey adds the issue_key tag for tracker keys like APP-123
func registerIssueKey(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterValidation("issue_key", func(fl validator.FieldLevel) bool {
		return issueKeyRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterTranslation("issue_key", trans,
		func(ut ut.Translator) error {
			return ut.Add("issue_key", "{0} must be an issue key like APP-123", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("issue_key", fe.Field())
			return msg
		},
	)
}
