package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/catenahq/bridge-backend/internal/chain"
)

type Config struct {
	Env       string `mapstructure:"CTB_ENV"`
	HTTPAddr  string `mapstructure:"CTB_HTTP_ADDR"`
	PublicURL string `mapstructure:"CTB_PUBLIC_ORIGIN"`

	Bridge   BridgeConfig   `mapstructure:",squash"`
	Cache    CacheConfig    `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type BridgeConfig struct {
	HomeChain       string        `mapstructure:"CTB_HOME_CHAIN"`
	SignerKey       string        `mapstructure:"CTB_SIGNER_KEY"` // optional; API submission disabled without it
	PollInterval    time.Duration `mapstructure:"CTB_POLL_INTERVAL"`
	MaxPollFailures int           `mapstructure:"CTB_MAX_POLL_FAILURES"`

	// Loaded per chain / per route from CTB_RPC_URL_*, CTB_RELAYER_URL_* and
	// CTB_BRIDGE_CONTRACT_*.
	RPCURLs map[chain.ID]string
	Routes  map[string]RouteEndpoints
}

// RouteEndpoints holds the off-chain endpoints of one directional route,
// keyed by "source:target".
type RouteEndpoints struct {
	RelayerURL     string
	BridgeContract string
}

type CacheConfig struct {
	RedisAddr string        `mapstructure:"CTB_REDIS_ADDR"`
	TTL       time.Duration `mapstructure:"CTB_CACHE_TTL"`
}

type SecurityConfig struct {
	RateLimitRPM       int      `mapstructure:"CTB_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string `mapstructure:"CTB_CORS_ALLOWED_ORIGINS"`
}

// routedPairs lists the directional routes the backend serves: every non-home
// chain bridges to and from Catena.
var routedPairs = [][2]chain.ID{
	{chain.Catena, chain.Ethereum},
	{chain.Ethereum, chain.Catena},
	{chain.Catena, chain.Polygon},
	{chain.Polygon, chain.Catena},
	{chain.Catena, chain.Arbitrum},
	{chain.Arbitrum, chain.Catena},
}

// RouteKey builds the Routes map key for a directional route.
func RouteKey(source, target chain.ID) string {
	return string(source) + ":" + string(target)
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("backend", ".env"),
		filepath.Join("..", ".env"),
		filepath.Join("..", "backend", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if !filepath.IsAbs(path) {
			if resolved, err := filepath.Abs(path); err == nil {
				abs = resolved
			}
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // ignore errors; env vars already set take precedence
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("CTB_ENV", "dev")
	viper.SetDefault("CTB_HTTP_ADDR", ":8080")
	viper.SetDefault("CTB_PUBLIC_ORIGIN", "http://localhost:3000")
	viper.SetDefault("CTB_HOME_CHAIN", string(chain.Catena))
	viper.SetDefault("CTB_POLL_INTERVAL", "10s")
	viper.SetDefault("CTB_MAX_POLL_FAILURES", 30)
	viper.SetDefault("CTB_REDIS_ADDR", "127.0.0.1:6379")
	viper.SetDefault("CTB_CACHE_TTL", "30s")
	viper.SetDefault("CTB_RATE_LIMIT_RPM", 120)
	viper.SetDefault("CTB_CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	viper.SetDefault("CTB_RPC_URL_CATENA", "http://localhost:8545")

	// Handle array parsing for comma-separated values
	if origins := viper.GetString("CTB_CORS_ALLOWED_ORIGINS"); origins != "" {
		viper.Set("CTB_CORS_ALLOWED_ORIGINS", strings.Split(origins, ","))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.loadChainEndpoints()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// loadChainEndpoints reads the per-chain and per-route env keys, e.g.
// CTB_RPC_URL_ETHEREUM, CTB_RELAYER_URL_CATENA_ETHEREUM,
// CTB_BRIDGE_CONTRACT_CATENA_ETHEREUM.
func (c *Config) loadChainEndpoints() {
	c.Bridge.RPCURLs = make(map[chain.ID]string)
	for _, md := range chain.NewRegistry().All() {
		key := "CTB_RPC_URL_" + envSuffix(string(md.ID))
		if url := viper.GetString(key); url != "" {
			c.Bridge.RPCURLs[md.ID] = url
		}
	}

	c.Bridge.Routes = make(map[string]RouteEndpoints)
	for _, pair := range routedPairs {
		suffix := envSuffix(string(pair[0])) + "_" + envSuffix(string(pair[1]))
		relayer := viper.GetString("CTB_RELAYER_URL_" + suffix)
		contract := viper.GetString("CTB_BRIDGE_CONTRACT_" + suffix)
		if relayer == "" && contract == "" {
			continue
		}
		c.Bridge.Routes[RouteKey(pair[0], pair[1])] = RouteEndpoints{
			RelayerURL:     relayer,
			BridgeContract: contract,
		}
	}
}

func envSuffix(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
}

func (c *Config) validate() error {
	home := chain.ID(strings.ToLower(strings.TrimSpace(c.Bridge.HomeChain)))
	if !chain.NewRegistry().Known(home) {
		return fmt.Errorf("unknown CTB_HOME_CHAIN %q", c.Bridge.HomeChain)
	}
	c.Bridge.HomeChain = string(home)

	if len(c.Bridge.Routes) == 0 {
		return fmt.Errorf("no bridge routes configured (set CTB_RELAYER_URL_* and CTB_BRIDGE_CONTRACT_*)")
	}
	for key, route := range c.Bridge.Routes {
		if route.RelayerURL == "" {
			return fmt.Errorf("route %s: relayer url is required", key)
		}
		if route.BridgeContract == "" {
			return fmt.Errorf("route %s: bridge contract is required", key)
		}
		source, _, _ := strings.Cut(key, ":")
		if c.Bridge.RPCURLs[chain.ID(source)] == "" {
			return fmt.Errorf("route %s: no rpc url configured for %s", key, source)
		}
	}
	if c.Bridge.PollInterval <= 0 {
		return fmt.Errorf("CTB_POLL_INTERVAL must be positive")
	}
	if c.Bridge.MaxPollFailures <= 0 {
		return fmt.Errorf("CTB_MAX_POLL_FAILURES must be positive")
	}
	return nil
}

// HomeChainID returns the validated home chain.
func (c *Config) HomeChainID() chain.ID {
	return chain.ID(c.Bridge.HomeChain)
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
