package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aidashboard/dashboard-auth/internal/apperror"
)

func TestDecodeJSONValidationDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"not-an-email","password":"123"}`))
	var body RegisterRequest
	err := decodeJSON(req, &body)

	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind != apperror.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := appErr.Details.([]FieldError)
	if !ok || len(details) != 2 {
		t.Fatalf("expected two field errors, got %#v", appErr.Details)
	}
	got := map[string]string{}
	for _, d := range details {
		got[d.Field] = d.Rule
	}
	if got["email"] != "email" || got["password"] != "min" {
		t.Fatalf("unexpected field errors %+v", got)
	}
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
	var body LoginRequest
	if err := decodeJSON(req, &body); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestOTPRequestShape(t *testing.T) {
	cases := map[string]bool{
		"123456":  true,
		"012345":  true,
		"12345":   false,
		"12345a":  false,
		"1234567": false,
	}
	for otp, valid := range cases {
		err := validateStruct(&OTPRequest{OTP: otp})
		if (err == nil) != valid {
			t.Fatalf("otp %q: valid=%v err=%v", otp, valid, err)
		}
	}
}

func TestResetTokenIsNotShapeValidated(t *testing.T) {
	if err := validateStruct(&ResetPasswordRequest{NewPassword: "secret1"}); err != nil {
		t.Fatalf("missing reset token must reach the handler, got %v", err)
	}
}
