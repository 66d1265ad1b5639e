package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/FrontGate/FrontGate/pkg/common"
)

const (
	defaultDedupWindow    = 10 * time.Second
	defaultNotifyCooldown = 60 * time.Second
	defaultPasscodeLength = 5
	defaultQueueSize      = 1024
)

type Config struct {
	getenv  func(string) string
	stage   string
	verbose bool
}

func New(getenv func(string) string) *Config {
	return &Config{
		getenv:  getenv,
		stage:   getenv("STAGE"),
		verbose: common.EnvToBool(getenv("VERBOSE")),
	}
}

func (c *Config) Getenv(s string) string {
	return c.getenv(s)
}

func (c *Config) Stage() string {
	return c.stage
}

func (c *Config) Verbose() bool {
	return c.verbose
}

func (c *Config) ListenAddress() string {
	host := c.getenv("FG_HOST")
	if host == "" {
		host = "localhost"
	}

	port := c.getenv("FG_PORT")
	if port == "" {
		port = "8080"
	}

	return net.JoinHostPort(host, port)
}

func (c *Config) seconds(key string, fallback time.Duration) time.Duration {
	value := c.getenv(key)
	i, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return time.Duration(i) * time.Second
}

func (c *Config) integer(key string, fallback int) int {
	i, err := strconv.Atoi(c.getenv(key))
	if err != nil {
		return fallback
	}

	return i
}

// DedupWindow is the bucket size collapsing repeated unknown-face
// detections into a single enrollment. Non-positive values are treated as
// misconfiguration and fall back to the default.
func (c *Config) DedupWindow() time.Duration {
	window := c.seconds("FG_DEDUP_WINDOW_SECONDS", defaultDedupWindow)
	if window < time.Second {
		return defaultDedupWindow
	}

	return window
}

// NotifyCooldown is the minimum interval between notifications or passcode
// issuance for the same identity.
func (c *Config) NotifyCooldown() time.Duration {
	return c.seconds("FG_NOTIFY_COOLDOWN_SECONDS", defaultNotifyCooldown)
}

func (c *Config) PasscodeLength() int {
	return c.integer("FG_PASSCODE_LENGTH", defaultPasscodeLength)
}

// PasscodeTTL of zero means codes never expire.
func (c *Config) PasscodeTTL() time.Duration {
	return c.seconds("FG_PASSCODE_TTL_SECONDS", 0)
}

// PasscodeSingleUse makes a successful validation consume the code.
func (c *Config) PasscodeSingleUse() bool {
	return common.EnvToBool(c.getenv("FG_PASSCODE_SINGLE_USE"))
}

func (c *Config) EventQueueSize() int {
	return c.integer("FG_EVENT_QUEUE_SIZE", defaultQueueSize)
}

func (c *Config) OperatorEmail() string {
	return c.getenv("FG_OPERATOR_EMAIL")
}

// ReviewBaseURL is the operator frontend where an unauthorized visitor can
// be reviewed and approved.
func (c *Config) ReviewBaseURL() string {
	return strings.TrimRight(c.getenv("FG_REVIEW_BASE_URL"), "/")
}

func (c *Config) ReviewOrigins() []string {
	value := c.getenv("FG_REVIEW_ORIGINS")
	if len(value) == 0 {
		return nil
	}

	origins := strings.Split(value, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return origins
}

func (c *Config) SMTPServerURL() string {
	return c.getenv("FG_SMTP_URL")
}

func (c *Config) SMTPUsername() string {
	return c.getenv("FG_SMTP_USER")
}

func (c *Config) SMTPPassword() string {
	return c.getenv("FG_SMTP_PASSWORD")
}

func (c *Config) SMTPSender() string {
	return c.getenv("FG_SMTP_SENDER")
}

func (c *Config) VisionBaseURL() string {
	return strings.TrimRight(c.getenv("FG_VISION_BASE_URL"), "/")
}

func (c *Config) FaceCollection() string {
	return c.getenv("FG_FACE_COLLECTION")
}

func (c *Config) PhotoBucket() string {
	return c.getenv("FG_PHOTO_BUCKET")
}

func (c *Config) PhotoDir() string {
	return c.getenv("FG_PHOTO_DIR")
}

func (c *Config) RateLimitHeader() string {
	return c.getenv("FG_RATELIMIT_HEADER")
}

func (c *Config) HealthCheckInterval() time.Duration {
	if "slow" == c.getenv("HEALTHCHECK") {
		return 1 * time.Minute
	}

	return 5 * time.Second
}

func (c *Config) PostgresUser(admin bool) string {
	if admin {
		if user := c.getenv("FG_POSTGRES_ADMIN"); len(user) > 0 {
			return user
		}
	}

	return c.getenv("FG_POSTGRES_USER")
}

func (c *Config) PostgresPassword(admin bool) string {
	if admin {
		if pass := c.getenv("FG_POSTGRES_ADMIN_PASSWORD"); len(pass) > 0 {
			return pass
		}
	}

	return c.getenv("FG_POSTGRES_PASSWORD")
}

func (c *Config) ClickHouseUser(admin bool) string {
	if admin {
		if user := c.getenv("FG_CLICKHOUSE_ADMIN"); len(user) > 0 {
			return user
		}
	}

	return c.getenv("FG_CLICKHOUSE_USER")
}

func (c *Config) ClickHousePassword(admin bool) string {
	if admin {
		if pass := c.getenv("FG_CLICKHOUSE_ADMIN_PASSWORD"); len(pass) > 0 {
			return pass
		}
	}

	return c.getenv("FG_CLICKHOUSE_PASSWORD")
}
