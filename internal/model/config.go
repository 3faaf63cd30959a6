package model

import "time"

// Config holds all runtime configuration
type Config struct {
	HTTP         HTTPConfig         `mapstructure:"http" yaml:"http"`
	Endpoints    EndpointsConfig    `mapstructure:"endpoints" yaml:"endpoints"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting" yaml:"rate_limiting"`
	Breaker      BreakerConfig      `mapstructure:"breaker" yaml:"breaker"`
	Cache        CacheConfig        `mapstructure:"cache" yaml:"cache"`
	Concurrency  ConcurrencyConfig  `mapstructure:"concurrency" yaml:"concurrency"`
	Curation     CurationConfig     `mapstructure:"curation" yaml:"curation"`
	Log          LogConfig          `mapstructure:"log" yaml:"log"`
	Output       OutputConfig       `mapstructure:"output" yaml:"output"`
}

// HTTPConfig configures the transport shared by all wiki clients
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	MaxRetries   int           `mapstructure:"max_retries" yaml:"max_retries"`
	HTTPProxy    string        `mapstructure:"http_proxy" yaml:"http_proxy"`
	HTTPSProxy   string        `mapstructure:"https_proxy" yaml:"https_proxy"`
	NoProxy      string        `mapstructure:"no_proxy" yaml:"no_proxy"`
}

// EndpointsConfig holds the API base URLs
type EndpointsConfig struct {
	Wikipedia string `mapstructure:"wikipedia" yaml:"wikipedia"`
	Wikidata  string `mapstructure:"wikidata" yaml:"wikidata"`
	Commons   string `mapstructure:"commons" yaml:"commons"`
}

// RateLimitingConfig configures the per-host limiter
type RateLimitingConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size" yaml:"burst_size"`
}

// BreakerConfig configures the circuit breaker around each API host
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures" yaml:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	HalfOpenMax uint32        `mapstructure:"half_open_max" yaml:"half_open_max"`
}

// Cache policies
const (
	CachePolicyUnbounded = "unbounded"
	CachePolicyLRU       = "lru"
	CachePolicyTTL       = "ttl"
)

// CacheConfig selects the memo store used by request caches
type CacheConfig struct {
	Policy   string        `mapstructure:"policy" yaml:"policy"` // unbounded, lru, ttl
	Capacity int           `mapstructure:"capacity" yaml:"capacity"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// ConcurrencyConfig bounds fan-out
type ConcurrencyConfig struct {
	ImageWorkers  int `mapstructure:"image_workers" yaml:"image_workers"`
	EntityBatches int `mapstructure:"entity_batches" yaml:"entity_batches"` // Concurrent wbgetentities requests
	Workers       int `mapstructure:"workers" yaml:"workers"`               // Topics built at once by batch
}

// CurationConfig holds set size limits
type CurationConfig struct {
	MaxMembers int `mapstructure:"max_members" yaml:"max_members"` // Above this the set is truncated
	TruncateTo int `mapstructure:"truncate_to" yaml:"truncate_to"`
}

// LogConfig configures zap
type LogConfig struct {
	Env   string `mapstructure:"env" yaml:"env"` // prod or dev
	Level string `mapstructure:"level" yaml:"level"`
}

// OutputConfig configures rendering
type OutputConfig struct {
	Format  string `mapstructure:"format" yaml:"format"` // text, json, yaml
	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "Cardset/0.1 (+https://github.com/ppiankov/cardset)",
			MaxBodyBytes: 8_000_000,
			MaxRetries:   2,
		},
		Endpoints: EndpointsConfig{
			Wikipedia: "https://en.wikipedia.org/w/api.php",
			Wikidata:  "https://www.wikidata.org/w/api.php",
			Commons:   "https://commons.wikimedia.org/w/api.php",
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 10,
			BurstSize:         10,
		},
		Breaker: BreakerConfig{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
			HalfOpenMax: 2,
		},
		Cache: CacheConfig{
			Policy:   CachePolicyLRU,
			Capacity: 4096,
			TTL:      time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			ImageWorkers:  8,
			EntityBatches: 2,
			Workers:       2,
		},
		Curation: CurationConfig{
			MaxMembers: 85,
			TruncateTo: 75,
		},
		Log: LogConfig{
			Env:   "prod",
			Level: "warn",
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}
