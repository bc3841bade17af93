package bind

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "shipledger/internal/platform/errors"
)

// shared payload for many tests
type payload struct {
	FixVersion string `json:"fix_version" validate:"required,min=2"`
	WindowDays int    `json:"window_days" validate:"min=1"`
}

func TestParseJSON_Success(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"fix_version":"2026.1.0","window_days":30}`))
	got, err := ParseJSON[payload](req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FixVersion != "2026.1.0" || got.WindowDays != 30 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseJSON_EmptyBody_Disallow(t *testing.T) {
	req := httptest.NewRequest("POST", "/", http.NoBody)
	_, err := ParseJSON[payload](req)
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error code, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestParseJSON_EmptyBody_SafeMethodsTolerated(t *testing.T) {
	type filter struct {
		Repo string `json:"repo"`
	}
	req := httptest.NewRequest("GET", "/", http.NoBody)
	got, err := ParseJSON[filter](req)
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if got != (filter{}) {
		t.Fatalf("expected zero value, got %+v", got)
	}
}

func TestParseJSON_AllowEmptyBody(t *testing.T) {
	type emptyOK struct {
		Note string `json:"note"`
	}

	req := httptest.NewRequest("POST", "/", http.NoBody)
	got, err := ParseJSON[emptyOK](req, JSONOptions{AllowEmptyBody: true})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if got != (emptyOK{}) {
		t.Fatalf("expected zero value, got %+v", got)
	}

	// same path with a byte limit in place
	req = httptest.NewRequest("POST", "/", strings.NewReader(`{}`))
	if _, err := ParseJSON[emptyOK](req, JSONOptions{AllowEmptyBody: true, MaxBytes: 8}); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestParseJSON_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{`))
	_, err := ParseJSON[payload](req)
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error code, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestParseJSON_UnknownField(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"fix_version":"2026.1.0","window_days":30,"boom":1}`))
	_, err := ParseJSON[payload](req) // DisallowUnknown default true
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error for unknown field, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestParseJSON_DisallowUnknownFalse(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"fix_version":"2026.1.0","window_days":30,"extra":"ok"}`))
	got, err := ParseJSON[payload](req, JSONOptions{DisallowUnknown: false})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if got.FixVersion != "2026.1.0" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

// Forces the trailing-data branch via the seam
func TestParseJSON_TrailingData(t *testing.T) {
	orig := jsonMore
	jsonMore = func(_ *json.Decoder) bool { return true }
	defer func() { jsonMore = orig }()

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"fix_version":"2026.1.0","window_days":30}`))
	_, err := ParseJSON[payload](req)
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error for trailing data, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestParseJSON_ValidationError(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"fix_version":"x","window_days":0}`))
	_, err := ParseJSON[payload](req)
	if perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("expected validation error code, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestParseJSON_MaxBytesExceeded(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"fix_version":"2026.1.0","window_days":30}`))
	_, err := ParseJSON[payload](req, JSONOptions{MaxBytes: 5, DisallowUnknown: true})
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error due to size limit, got %v (%v)", perr.CodeOf(err), err)
	}
}

// Non-struct targets trip validator.InvalidValidationError
func TestParseJSON_NonStructTarget(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`5`))
	_, err := ParseJSON[int](req)
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON-coded error, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestIssueKeyTag(t *testing.T) {
	type scoped struct {
		Keys []string `json:"keys" validate:"dive,issue_key"`
	}

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"keys":["APP-1","CORE-204"]}`))
	if _, err := ParseJSON[scoped](req); err != nil {
		t.Fatalf("valid keys rejected: %v", err)
	}

	for _, bad := range []string{"app-1", "APP-0", "APP1", "1APP-2", "APP-"} {
		req := httptest.NewRequest("POST", "/", strings.NewReader(`{"keys":["`+bad+`"]}`))
		_, err := ParseJSON[scoped](req)
		if perr.CodeOf(err) != perr.ErrorCodeValidation {
			t.Fatalf("key %q should fail validation, got %v", bad, err)
		}
	}
}

func TestTagNameFunc_JSONTagUsedInMessages(t *testing.T) {
	type named struct {
		FixVersion string `json:"fix_version" validate:"required"`
	}
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{}`))
	_, err := ParseJSON[named](req)
	if err == nil || !strings.Contains(err.Error(), "fix_version") {
		t.Fatalf("message should use the json tag name, got %v", err)
	}
}

func TestValidationFieldAndMessage(t *testing.T) {
	field, msg := ValidationFieldAndMessage(nil)
	if field != "" || msg != "" {
		t.Fatalf("nil error should map to empty strings")
	}

	field, msg = ValidationFieldAndMessage(errors.New("plain"))
	if field != "" || msg != "plain" {
		t.Fatalf("generic error: field=%q msg=%q", field, msg)
	}

	err := Get().Validator.Struct(payload{FixVersion: "", WindowDays: 0})
	field, msg = ValidationFieldAndMessage(err)
	if field == "" || msg == "" {
		t.Fatalf("validation error should yield field and message, got %q %q", field, msg)
	}
}

func TestRegisterValidation_CustomTag(t *testing.T) {
	if err := RegisterValidation("repo_slug", func(fl FieldLevel) bool {
		s := fl.Field().String()
		return s != "" && !strings.Contains(s, " ")
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	type repo struct {
		Slug string `json:"slug" validate:"repo_slug"`
	}
	if err := Get().Validator.Struct(repo{Slug: "platform-api"}); err != nil {
		t.Fatalf("valid slug rejected: %v", err)
	}
	if err := Get().Validator.Struct(repo{Slug: "has space"}); err == nil {
		t.Fatalf("invalid slug accepted")
	}
}
