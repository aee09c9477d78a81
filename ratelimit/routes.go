package ratelimit

import "strings"

// RouteGroup is a classification bucket sharing one rate-limit budget.
type RouteGroup string

// The closed set of rate-limited route groups. Paths outside these groups are
// not rate limited.
const (
	GroupAuth    RouteGroup = "auth"
	GroupPayment RouteGroup = "payment"
	GroupAdmin   RouteGroup = "admin"
)

// Classify maps a request path to its route group by prefix. The second
// return is false for paths that are not rate limited. Classification is pure:
// identical input always yields identical output.
func Classify(path string) (RouteGroup, bool) {
	switch {
	case path == "/api/auth" || strings.HasPrefix(path, "/api/auth/"):
		return GroupAuth, true
	case path == "/api/pay",
		path == "/api/verify-otp",
		path == "/api/paymentMembershipHandler",
		path == "/api/payment",
		strings.HasPrefix(path, "/api/payment/"):
		return GroupPayment, true
	case strings.HasPrefix(path, "/admin"):
		return GroupAdmin, true
	}
	return "", false
}
