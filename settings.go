package httpclient

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"

	"github.com/iand675/http-client/internal/obs"
)

// ManagerSettings configures a Manager: connection counts, default
// timeouts, exception predicates, request/response modifiers, and
// proxy overrides.
type ManagerSettings struct {
	// IdleConnectionCount is the global idle-connection cap across
	// every ConnKey.
	IdleConnectionCount int `env:"HTTPCLIENT_MAX_IDLE_CONNS" envDefault:"512"`

	// ManagerConnCount is the per-ConnKey idle-connection cap.
	ManagerConnCount int `env:"HTTPCLIENT_MAX_IDLE_CONNS_PER_HOST" envDefault:"10"`

	// IdleConnectionTimeout is the TTL after which a background
	// reaper closes an idle connection.
	IdleConnectionTimeout time.Duration `env:"HTTPCLIENT_IDLE_CONN_TIMEOUT" envDefault:"90s"`

	// DefaultResponseTimeout applies when a Request.ResponseTimeout
	// is zero.
	DefaultResponseTimeout time.Duration `env:"HTTPCLIENT_RESPONSE_TIMEOUT" envDefault:"0s"`

	// ConnectionTimeout bounds dialing.
	ConnectionTimeout time.Duration `env:"HTTPCLIENT_DIAL_TIMEOUT" envDefault:"10s"`

	// MaxConcurrentDials bounds simultaneous in-flight dials across
	// the whole Manager. Zero disables the bound.
	MaxConcurrentDials int64 `env:"HTTPCLIENT_MAX_CONCURRENT_DIALS" envDefault:"64"`

	// RetryableException decides, when a request fails while using a
	// reused connection, whether to transparently retry once on a
	// fresh connection.
	RetryableException func(error) bool `env:"-"`

	// ModifyRequest / ModifyResponse run right after a request is
	// built and right before a response is handed back, respectively.
	// Both MUST be idempotent under repeated application.
	ModifyRequest  func(*Request) *Request   `env:"-"`
	ModifyResponse func(*Response) *Response `env:"-"`

	// ProxyInsecure / ProxySecure resolve managerProxyInsecure /
	// managerProxySecure. A nil value falls back to environment-based
	// resolution (proxyFromEnvironment).
	ProxyInsecure func(*Request) (*ProxyConfig, error) `env:"-"`
	ProxySecure   func(*Request) (*ProxyConfig, error) `env:"-"`

	Logger obs.Logger `env:"-"`
	Meter  obs.Meter   `env:"-"`
}

// DefaultManagerSettings mirrors the zero-env defaults above, for
// callers constructing a Manager without LoadManagerSettingsFromEnv.
func DefaultManagerSettings() ManagerSettings {
	return ManagerSettings{
		IdleConnectionCount:     512,
		ManagerConnCount:        10,
		IdleConnectionTimeout:   90 * time.Second,
		ConnectionTimeout:       10 * time.Second,
		MaxConcurrentDials:      64,
	}
}

// LoadManagerSettingsFromEnv populates the numeric/duration fields of
// ManagerSettings from the environment via caarlos0/env, the same way
// the pack's blwa.ParseEnv loads typed config. Fields tagged env:"-"
// (modifiers, predicates, proxy hooks, Logger, Meter) are never
// settable from the environment and are left as passed in base.
func LoadManagerSettingsFromEnv(base ManagerSettings) (ManagerSettings, error) {
	if err := env.Parse(&base); err != nil {
		return base, errors.Wrap(err, "httpclient: failed to parse ManagerSettings from environment")
	}
	return base, nil
}
