package validators

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront-api/pkg/errors"
)

type samplePayload struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"min=1"`
}

func newRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	var dest samplePayload
	err := DecodeJSONBody(newRequest(`{"name":"","count":0}`), &dest)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details := typed.Details().(map[string]string)
	if details["name"] != "is required" || details["count"] != "must be at least 1" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyUnknownFields(t *testing.T) {
	var dest samplePayload
	if err := DecodeJSONBody(newRequest(`{"name":"a","count":1,"extra":true}`), &dest); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if err := DecodeJSONBody(newRequest(`{"name":"a","count":1,"extra":true}`), &dest, AllowUnknownFields()); err != nil {
		t.Fatalf("expected unknown fields tolerated, got %v", err)
	}
}

func TestDecodeJSONBodySkipValidation(t *testing.T) {
	var dest samplePayload
	if err := DecodeJSONBody(newRequest(`{"name":"","count":0}`), &dest, SkipValidation()); err != nil {
		t.Fatalf("expected tags ignored, got %v", err)
	}
	if dest.Name != "" || dest.Count != 0 {
		t.Fatalf("unexpected payload %+v", dest)
	}

	err := DecodeJSONBody(newRequest(`{"name":`), &dest, SkipValidation())
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "request body is not valid JSON" {
		t.Fatalf("expected syntax error still reported, got %v", err)
	}
}

func TestDecodeJSONBodyEmptyAndOversized(t *testing.T) {
	var dest samplePayload
	err := DecodeJSONBody(newRequest(``), &dest)
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "request body is required" {
		t.Fatalf("expected empty body error, got %v", err)
	}

	err = DecodeJSONBody(newRequest(`{"name":"`+strings.Repeat("x", 64)+`","count":1}`), &dest, WithMaxBytes(16))
	if typed := pkgerrors.As(err); typed == nil || !strings.Contains(typed.Message(), "must not exceed 16 bytes") {
		t.Fatalf("expected size error, got %v", err)
	}

	err = DecodeJSONBody(newRequest(`{"name":`), &dest)
	if typed := pkgerrors.As(err); typed == nil || typed.Message() != "request body is not valid JSON" {
		t.Fatalf("expected syntax error, got %v", err)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&bad=x&big=500", nil)
	if v, err := ParseQueryInt(req, "limit", 10, 1, 50); err != nil || v != 5 {
		t.Fatalf("expected 5, got %d %v", v, err)
	}
	if v, err := ParseQueryInt(req, "missing", 10, 1, 50); err != nil || v != 10 {
		t.Fatalf("expected default, got %d %v", v, err)
	}
	if _, err := ParseQueryInt(req, "bad", 10, 1, 50); err == nil {
		t.Fatalf("expected numeric error")
	}
	if _, err := ParseQueryInt(req, "big", 10, 1, 50); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestQueryString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?q=%20%20mug%20cup%20%20", nil)
	if got := QueryString(req, "q", 5); got != "mug c" {
		t.Fatalf("unexpected query %q", got)
	}
}

func TestQueryStringTruncatesRunes(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/search?q="+url.QueryEscape("  café mugs  "), nil)
	if got := QueryString(req, "q", 4); got != "café" {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
	if got := QueryString(req, "q", 0); got != "café mugs" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
}
