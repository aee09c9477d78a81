package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/nhalm/canonlog"

	"github.com/phildass/iiskills-cloud-sub007/apierror"
)

var paymentValidator *validator.Validate

func init() {
	paymentValidator = validator.New(validator.WithRequiredStructEnabled())

	paymentValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]; name != "" && name != "-" {
			return name
		}
		return fld.Name
	})
}

// PaymentRequest is the payment-confirmation payload. The app id travels in
// the URL; the body carries the capture details.
type PaymentRequest struct {
	TransactionID string  `json:"transactionId" validate:"required"`
	Email         string  `json:"email" validate:"required,email"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
}

// GuardFreeAppPayment reports whether a payment attempt for the app must be
// blocked: true for free apps. Money is never collected for content that is
// already free. Unknown app ids are an error.
func GuardFreeAppPayment(registry *Registry, appID string) (bool, error) {
	return registry.IsFree(appID)
}

// ValidatePaymentRequest checks the payload's required fields and formats.
// A nil return means the payload is valid.
func ValidatePaymentRequest(req *PaymentRequest) []apierror.FieldError {
	err := paymentValidator.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apierror.FieldError{{Param: "", Code: "invalid", Message: err.Error()}}
	}

	out := make([]apierror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apierror.FieldError{
			Param:   fe.Field(),
			Code:    fe.Tag(),
			Message: validationMessage(fe.Tag(), fe.Param()),
		})
	}
	return out
}

func validationMessage(tag, param string) string {
	switch tag {
	case "required":
		return "required"
	case "email":
		return "must be a valid email"
	case "gt":
		return "must be greater than " + param
	default:
		if param != "" {
			return "failed " + tag + "=" + param
		}
		return "failed " + tag
	}
}

type guardConfig struct {
	appParam string
}

// GuardOption configures the PaymentGuard middleware.
type GuardOption func(*guardConfig)

// GuardAppParam sets the chi URL parameter carrying the app id
// (default "appID").
func GuardAppParam(name string) GuardOption {
	return func(c *guardConfig) {
		c.appParam = name
	}
}

type contextKey string

const paymentRequestKey contextKey = "payment_request"

// PaymentGuard returns middleware for payment-confirmation endpoints. Checks
// run in order and the first failure determines the rejection:
//
//  1. Method: POST only (405).
//  2. Free-app guard: free apps never accept payments (400); unknown app ids
//     are rejected and logged (404).
//  3. Payload: valid JSON with transactionId, email, and a positive amount
//     (400 with per-field errors).
//
// On pass, the parsed payload is available downstream via
// PaymentRequestFromContext.
func PaymentGuard(registry *Registry, opts ...GuardOption) func(http.Handler) http.Handler {
	cfg := &guardConfig{appParam: "appID"}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				apierror.Write(w, apierror.ErrMethodNotAllowed)
				return
			}

			appID := chi.URLParam(r, cfg.appParam)
			block, err := GuardFreeAppPayment(registry, appID)
			if err != nil {
				canonlog.ErrorAdd(r.Context(), err)
				apierror.Write(w, apierror.ErrUnknownApp.WithParam("Unknown app", cfg.appParam))
				return
			}
			if block {
				apierror.Write(w, apierror.ErrFreeAppPayment)
				return
			}

			var req PaymentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				apierror.Write(w, apierror.ErrBadRequest.With("Invalid JSON body"))
				return
			}
			if fieldErrs := ValidatePaymentRequest(&req); fieldErrs != nil {
				apierror.Write(w, apierror.NewValidationError(fieldErrs))
				return
			}

			ctx := context.WithValue(r.Context(), paymentRequestKey, &req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PaymentRequestFromContext retrieves the payload parsed by PaymentGuard.
func PaymentRequestFromContext(ctx context.Context) (*PaymentRequest, bool) {
	req, ok := ctx.Value(paymentRequestKey).(*PaymentRequest)
	return req, ok
}
