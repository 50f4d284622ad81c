package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/venturex/internal/model"
)

func TestMapAPIErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *model.APIError
		want int
	}{
		{model.NewInvalidRequestError(), http.StatusBadRequest},
		{model.NewMissingIdentityError(), http.StatusBadRequest},
		{model.NewMissingFieldError("email"), http.StatusBadRequest},
		{model.NewInvalidFieldError("limit", "bad"), http.StatusBadRequest},
		{model.NewInvalidURLError("bad"), http.StatusBadRequest},
		{model.NewInvalidAmountError(), http.StatusBadRequest},
		{model.NewInvalidStepError("x"), http.StatusBadRequest},
		{model.NewInvalidFileError("bad"), http.StatusBadRequest},
		{model.NewUnauthorizedError(), http.StatusUnauthorized},
		{model.NewIdentityMismatchError(), http.StatusForbidden},
		{model.NewSSRFBlockedError(), http.StatusForbidden},
		{model.NewUserNotFoundError(), http.StatusNotFound},
		{model.NewCompanyNotFoundError("acme"), http.StatusNotFound},
		{model.NewInvalidStepOrderError("finish", "identity"), http.StatusConflict},
		{model.NewFileTooLargeError(10), http.StatusRequestEntityTooLarge},
		{model.NewBelowMinimumInvestmentError(100), http.StatusUnprocessableEntity},
		{model.NewRateLimitedError(), http.StatusTooManyRequests},
		{model.NewChatUnavailableError(), http.StatusBadGateway},
		{model.NewUploadFailedError(), http.StatusBadGateway},
		{model.NewServiceUnavailableError("chat"), http.StatusServiceUnavailable},
		{model.NewInternalError(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			if got := mapAPIErrorToHTTPStatus(tt.err); got != tt.want {
				t.Errorf("mapAPIErrorToHTTPStatus(%s) = %d, want %d", tt.err.Code, got, tt.want)
			}
		})
	}
}

func TestHandleServiceError_WrappedAPIError(t *testing.T) {
	w := httptest.NewRecorder()
	err := fmt.Errorf("wrapped: %w", model.NewCompanyNotFoundError("acme"))

	handleServiceError(w, httptest.NewRequest(http.MethodGet, "/api/company/get", nil), err)

	assertErrorResponse(t, w, http.StatusNotFound, model.ErrCodeCompanyNotFound)
}

func TestHandleServiceError_UnknownErrorIsGeneric500(t *testing.T) {
	w := httptest.NewRecorder()

	handleServiceError(w, httptest.NewRequest(http.MethodGet, "/api/welcome", nil), errors.New("pq: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if got := w.Body.String(); containsAny(got, "pq:", "connection refused") {
		t.Errorf("internal detail leaked to client: %s", got)
	}
}

func TestDecodeJSON_InvalidBody(t *testing.T) {
	w := httptest.NewRecorder()
	var dst map[string]any

	if decodeJSON(w, jsonRequest(http.MethodPost, "/api/auth/sync", "{not json"), &dst) {
		t.Fatal("decodeJSON returned true for invalid JSON")
	}
	assertErrorResponse(t, w, http.StatusBadRequest, model.ErrCodeInvalidRequest)
}

func TestCallerIdentity(t *testing.T) {
	tests := []struct {
		name     string
		verified string
		param    string
		want     string
		wantCode string
	}{
		{"param only", "", "u1", "u1", ""},
		{"param trimmed", "", "  u1 ", "u1", ""},
		{"missing", "", "", "", model.ErrCodeMissingIdentity},
		{"verified without param", "idp|a", "", "idp|a", ""},
		{"verified matching param", "idp|a", "idp|a", "idp|a", ""},
		{"verified mismatching param", "idp|a", "idp|b", "", model.ErrCodeIdentityMismatch},
		{"over-long param", "", strings.Repeat("u", model.MaxIdentityLength+1), "", model.ErrCodeInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.verified != "" {
				req = withVerifiedIdentity(req, tt.verified)
			}

			got, err := callerIdentity(req, tt.param)
			if tt.wantCode != "" {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) || apiErr.Code != tt.wantCode {
					t.Fatalf("err = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("identity = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOptionalIdentity_AllowsMissing(t *testing.T) {
	got, err := optionalIdentity(httptest.NewRequest(http.MethodPost, "/", nil), "")
	if err != nil || got != "" {
		t.Errorf("optionalIdentity = (%q, %v), want empty without error", got, err)
	}

	req := withVerifiedIdentity(httptest.NewRequest(http.MethodPost, "/", nil), "idp|a")
	if _, err := optionalIdentity(req, "idp|b"); err == nil {
		t.Error("expected mismatch error")
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
