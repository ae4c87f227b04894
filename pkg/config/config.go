package config

import (
	"time"
)

type DB struct {
	Url string `envconfig:"URL" default:"sqlite://skillcredits.db"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

type Auth struct {
	Strategy string `envconfig:"STRATEGY" default:"jwt"`
	Jwt      *Jwt   `envconfig:"JWT"`
	// InternalKeyHash is the bcrypt hash of the shared key internal callers
	// send in X-Internal-Key. Internal routes are disabled when empty.
	InternalKeyHash string `envconfig:"INTERNAL_KEY_HASH"`
}

type Redis struct {
	URL          string        `envconfig:"URL"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"skillcredits:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type EventBus struct {
	// Driver is memory or redis.
	Driver string `envconfig:"DRIVER" default:"memory"`
	Stream string `envconfig:"STREAM" default:"skillcredits:events"`
	Group  string `envconfig:"GROUP" default:"skillcredits"`
}

type Rabbit struct {
	URL         string        `envconfig:"URL"`
	Queue       string        `envconfig:"QUEUE" default:"reward_events"`
	Workers     int           `envconfig:"WORKERS" default:"4"`
	Prefetch    int           `envconfig:"PREFETCH" default:"16"`
	RetryDelay  time.Duration `envconfig:"RETRY_DELAY" default:"5s"`
	ConsumerTag string        `envconfig:"CONSUMER_TAG" default:"skillcredits-rewards"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Ledger struct {
	StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`
	// SignupBonus is credited by OpenAccount; zero disables it.
	SignupBonus int64 `envconfig:"SIGNUP_BONUS" default:"100"`
	// LockStripes is the number of per-account mutex stripes.
	LockStripes int `envconfig:"LOCK_STRIPES" default:"256"`
}

type Conversion struct {
	MinCredits int64 `envconfig:"MIN_CREDITS" default:"100"`
	// Rates is CODE:rate pairs, e.g. BTC:0.0000002,ETH:0.000004.
	// Empty means the built-in table.
	Rates string `envconfig:"RATES"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[skillcredits]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

type App struct {
	Env        string      `envconfig:"APP_ENV" default:"development"`
	Server     *Server     `envconfig:"SERVER"`
	Log        *Log        `envconfig:"LOG"`
	DB         *DB         `envconfig:"DATABASE"`
	Auth       *Auth       `envconfig:"AUTH"`
	Redis      *Redis      `envconfig:"REDIS"`
	EventBus   *EventBus   `envconfig:"EVENT_BUS"`
	Rabbit     *Rabbit     `envconfig:"RABBIT"`
	RateLimit  *RateLimit  `envconfig:"RATE_LIMIT"`
	Ledger     *Ledger     `envconfig:"LEDGER"`
	Conversion *Conversion `envconfig:"CONVERSION"`
}
