package ratelimit_test

import (
	"testing"
	"time"

	"github.com/phildass/iiskills-cloud-sub007/ratelimit"
)

func TestDefaultConfig(t *testing.T) {
	cfg := ratelimit.DefaultConfig()

	if cfg.Auth.Max != 10 || cfg.Auth.Window != time.Minute {
		t.Errorf("auth budget = %+v, want 10/60s", cfg.Auth)
	}
	if cfg.Payment.Max != 5 || cfg.Payment.Window != time.Minute {
		t.Errorf("payment budget = %+v, want 5/60s", cfg.Payment)
	}
	if cfg.Admin.Max != 30 || cfg.Admin.Window != time.Minute {
		t.Errorf("admin budget = %+v, want 30/60s", cfg.Admin)
	}
	if cfg.AdminAllowlist != nil {
		t.Errorf("allowlist = %v, want empty", cfg.AdminAllowlist)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_AUTH_MAX", "20")
	t.Setenv("RATE_LIMIT_PAYMENT_MAX", "3")
	t.Setenv("RATE_LIMIT_ADMIN_MAX", "100")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "30000")
	t.Setenv("ADMIN_IP_ALLOWLIST", "10.0.0.1, 10.0.0.2,")

	cfg := ratelimit.ConfigFromEnv()

	if cfg.Auth.Max != 20 {
		t.Errorf("auth max = %d, want 20", cfg.Auth.Max)
	}
	if cfg.Payment.Max != 3 {
		t.Errorf("payment max = %d, want 3", cfg.Payment.Max)
	}
	if cfg.Admin.Max != 100 {
		t.Errorf("admin max = %d, want 100", cfg.Admin.Max)
	}

	want := 30 * time.Second
	if cfg.Auth.Window != want || cfg.Payment.Window != want || cfg.Admin.Window != want {
		t.Errorf("windows = %v/%v/%v, want %v for all groups",
			cfg.Auth.Window, cfg.Payment.Window, cfg.Admin.Window, want)
	}

	if len(cfg.AdminAllowlist) != 2 || cfg.AdminAllowlist[0] != "10.0.0.1" || cfg.AdminAllowlist[1] != "10.0.0.2" {
		t.Errorf("allowlist = %v, want [10.0.0.1 10.0.0.2]", cfg.AdminAllowlist)
	}
}

func TestConfigFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_AUTH_MAX", "not-a-number")
	t.Setenv("RATE_LIMIT_PAYMENT_MAX", "-5")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "0")

	cfg := ratelimit.ConfigFromEnv()
	defaults := ratelimit.DefaultConfig()

	if cfg.Auth.Max != defaults.Auth.Max {
		t.Errorf("auth max = %d, want default %d", cfg.Auth.Max, defaults.Auth.Max)
	}
	if cfg.Payment.Max != defaults.Payment.Max {
		t.Errorf("payment max = %d, want default %d", cfg.Payment.Max, defaults.Payment.Max)
	}
	if cfg.Auth.Window != defaults.Auth.Window {
		t.Errorf("window = %v, want default %v", cfg.Auth.Window, defaults.Auth.Window)
	}
}

func TestBudgetFor(t *testing.T) {
	cfg := ratelimit.DefaultConfig()

	if got := cfg.BudgetFor(ratelimit.GroupAuth); got != cfg.Auth {
		t.Errorf("BudgetFor(auth) = %+v", got)
	}
	if got := cfg.BudgetFor(ratelimit.GroupPayment); got != cfg.Payment {
		t.Errorf("BudgetFor(payment) = %+v", got)
	}
	if got := cfg.BudgetFor(ratelimit.GroupAdmin); got != cfg.Admin {
		t.Errorf("BudgetFor(admin) = %+v", got)
	}
}
