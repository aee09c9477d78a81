package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Budget is one route group's request allowance per window.
type Budget struct {
	Max    int
	Window time.Duration
}

// Config holds the per-group budgets and the optional admin IP allowlist.
// An empty allowlist admits every IP to the admin rate-limit check.
type Config struct {
	Auth           Budget
	Payment        Budget
	Admin          Budget
	AdminAllowlist []string
}

// BudgetFor returns the budget for a route group.
func (c Config) BudgetFor(group RouteGroup) Budget {
	switch group {
	case GroupAuth:
		return c.Auth
	case GroupPayment:
		return c.Payment
	default:
		return c.Admin
	}
}

// DefaultConfig returns the stock budgets: auth 10/60s, payment 5/60s,
// admin 30/60s, no admin allowlist.
func DefaultConfig() Config {
	return Config{
		Auth:    Budget{Max: 10, Window: time.Minute},
		Payment: Budget{Max: 5, Window: time.Minute},
		Admin:   Budget{Max: 30, Window: time.Minute},
	}
}

// ConfigFromEnv returns DefaultConfig overridden by environment variables:
// RATE_LIMIT_AUTH_MAX, RATE_LIMIT_PAYMENT_MAX, RATE_LIMIT_ADMIN_MAX,
// RATE_LIMIT_WINDOW_MS (shared by all groups), and ADMIN_IP_ALLOWLIST
// (comma-separated). Unset or unparsable values keep their defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v, ok := envInt("RATE_LIMIT_AUTH_MAX"); ok {
		cfg.Auth.Max = v
	}
	if v, ok := envInt("RATE_LIMIT_PAYMENT_MAX"); ok {
		cfg.Payment.Max = v
	}
	if v, ok := envInt("RATE_LIMIT_ADMIN_MAX"); ok {
		cfg.Admin.Max = v
	}
	if v, ok := envInt("RATE_LIMIT_WINDOW_MS"); ok {
		window := time.Duration(v) * time.Millisecond
		cfg.Auth.Window = window
		cfg.Payment.Window = window
		cfg.Admin.Window = window
	}
	if raw := os.Getenv("ADMIN_IP_ALLOWLIST"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				cfg.AdminAllowlist = append(cfg.AdminAllowlist, ip)
			}
		}
	}

	return cfg
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
