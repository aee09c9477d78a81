package apierror_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phildass/iiskills-cloud-sub007/apierror"
)

func TestErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same sentinel", apierror.ErrNoActiveGrant, apierror.ErrNoActiveGrant, true},
		{"with message keeps identity", apierror.ErrNoActiveGrant.With("buy the bundle"), apierror.ErrNoActiveGrant, true},
		{"different sentinel", apierror.ErrUnauthenticated, apierror.ErrNoActiveGrant, false},
		{"non-api error", apierror.ErrUnknownApp, errors.New("unknown_app"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithDoesNotMutateSentinel(t *testing.T) {
	custom := apierror.ErrRateLimited.With("slow down")
	if custom.Message != "slow down" {
		t.Errorf("custom message = %q", custom.Message)
	}
	if apierror.ErrRateLimited.Message == "slow down" {
		t.Error("sentinel was mutated")
	}
	if custom.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", custom.Status)
	}
}

func TestWrite(t *testing.T) {
	rr := httptest.NewRecorder()
	apierror.Write(rr, apierror.ErrAdminIPDenied)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var body struct {
		Error struct {
			Type string `json:"type"`
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error.Code != "admin_ip_denied" {
		t.Errorf("code = %q, want admin_ip_denied", body.Error.Code)
	}
	if body.Error.Type != "auth_error" {
		t.Errorf("type = %q, want auth_error", body.Error.Type)
	}
}

func TestWriteValidationError(t *testing.T) {
	rr := httptest.NewRecorder()
	apierror.Write(rr, apierror.NewValidationError([]apierror.FieldError{
		{Param: "email", Code: "email", Message: "must be a valid email"},
	}))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}

	var body struct {
		Error struct {
			Errors []apierror.FieldError `json:"errors"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Error.Errors) != 1 || body.Error.Errors[0].Param != "email" {
		t.Errorf("field errors = %+v", body.Error.Errors)
	}
}
