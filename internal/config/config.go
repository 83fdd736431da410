// Package config loads service configuration from flags, environment
// variables, an optional .env file and an optional YAML tuning file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pokeball-ops/internal/solana"
)

// Mainnet defaults.
const (
	DefaultUSDCMint     = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	DefaultSwapAPIURL   = "https://quote-api.jup.ag/v6"
	DefaultHTTPAddr     = ":8080"
	DefaultTickInterval = 5 * time.Minute
)

// Config holds all service settings.
type Config struct {
	// Chain
	RPCEndpoint     string
	WSEndpoint      string // empty: confirm by polling only
	RPCRateLimit    float64
	ProgramID       string
	SolBallsMint    string
	USDCMint        string
	ReserveMint     string
	OperatorKeyFile string
	OperatorKey     string // base58 secret, used when OperatorKeyFile is empty

	// Revenue
	TreasuryWallet   string
	TreasuryPercent  int
	ReservePercent   int
	RetainedPercent  int
	SlippageBps      int
	MinSwapThreshold uint64
	WithdrawBuffer   uint64

	// Replenishment
	PackCost       uint64
	MinPacksPerRun int
	MaxVaultSize   int

	// Scheduling
	TickInterval time.Duration
	StartupDelay time.Duration

	// Feature flags
	SkipSwap     bool
	UseMockGacha bool

	// External services
	SwapAPIURL  string
	GachaAPIURL string
	GachaAPIKey string

	// Admin surface
	HTTPAddr    string
	AdminSecret string

	// Record sinks
	PostgresDSN   string
	ClickHouseDSN string
	UseMemory     bool
	JournalDir    string

	TuningFile string
	Tuning     Tuning
}

// envReader reads typed environment values and collects parse errors.
type envReader struct {
	errs []error
}

func (r *envReader) str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (r *envReader) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (r *envReader) unsigned(key string, def uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid unsigned integer %q", key, v))
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return def
	}
	return f
}

func (r *envReader) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

// Load registers the service flags on fs with environment values as defaults,
// parses args and reads the tuning file. Callers may register their own flags
// on fs beforehand. It does not validate; call Validate.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	env := &envReader{}
	cfg := &Config{
		RPCRateLimit:     env.float("RPC_RATE_LIMIT", 0),
		ProgramID:        env.str("GAME_PROGRAM_ID", ""),
		SolBallsMint:     env.str("SOLBALLS_MINT", ""),
		USDCMint:         env.str("USDC_MINT", DefaultUSDCMint),
		ReserveMint:      env.str("RESERVE_MINT", ""),
		OperatorKeyFile:  env.str("OPERATOR_KEYPAIR", ""),
		OperatorKey:      env.str("OPERATOR_PRIVATE_KEY", ""),
		TreasuryWallet:   env.str("TREASURY_WALLET", ""),
		TreasuryPercent:  env.integer("TREASURY_PERCENT", 10),
		ReservePercent:   env.integer("RESERVE_PERCENT", 10),
		RetainedPercent:  env.integer("RETAINED_PERCENT", 80),
		SlippageBps:      env.integer("SWAP_SLIPPAGE_BPS", 50),
		MinSwapThreshold: env.unsigned("MIN_SWAP_THRESHOLD", 0),
		WithdrawBuffer:   env.unsigned("WITHDRAW_BUFFER", 1),
		PackCost:         env.unsigned("PACK_COST", 0),
		MinPacksPerRun:   env.integer("MIN_PACKS_PER_RUN", 1),
		MaxVaultSize:     env.integer("MAX_VAULT_SIZE", solana.MaxVaultSize),
		SwapAPIURL:       env.str("SWAP_API_URL", DefaultSwapAPIURL),
		GachaAPIURL:      env.str("GACHA_API_URL", ""),
		GachaAPIKey:      env.str("GACHA_API_KEY", ""),
		AdminSecret:      env.str("ADMIN_SECRET", ""),
	}

	fs.StringVar(&cfg.RPCEndpoint, "rpc-endpoint", env.str("SOLANA_RPC_ENDPOINT", ""), "Solana RPC HTTP endpoint")
	fs.StringVar(&cfg.WSEndpoint, "ws-endpoint", env.str("SOLANA_WS_ENDPOINT", ""), "Solana WebSocket endpoint (empty: poll for confirmations)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", env.str("HTTP_ADDR", DefaultHTTPAddr), "Admin/metrics HTTP address")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", env.str("POSTGRES_DSN", ""), "PostgreSQL connection string for phase records")
	fs.StringVar(&cfg.ClickHouseDSN, "clickhouse-dsn", env.str("CLICKHOUSE_DSN", ""), "ClickHouse connection string for spawn checks")
	fs.BoolVar(&cfg.UseMemory, "use-memory", env.boolean("USE_MEMORY", false), "Use in-memory record storage")
	fs.StringVar(&cfg.JournalDir, "journal-dir", env.str("JOURNAL_DIR", ""), "Directory for the compressed run journal (empty: disabled)")
	fs.StringVar(&cfg.TuningFile, "tuning-file", env.str("TUNING_FILE", ""), "YAML tuning file")
	fs.DurationVar(&cfg.TickInterval, "tick-interval", env.duration("TICK_INTERVAL", DefaultTickInterval), "Pipeline tick interval")
	fs.DurationVar(&cfg.StartupDelay, "startup-delay", env.duration("STARTUP_DELAY", 10*time.Second), "Delay before the first tick")
	fs.BoolVar(&cfg.SkipSwap, "skip-swap", env.boolean("SKIP_SWAP", false), "Skip the swap and split phases")
	fs.BoolVar(&cfg.UseMockGacha, "mock-gacha", env.boolean("USE_MOCK_GACHA", false), "Mint placeholder collectibles instead of buying packs")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if len(env.errs) > 0 {
		return nil, errors.Join(env.errs...)
	}

	tuning, err := LoadTuning(cfg.TuningFile)
	if err != nil {
		return nil, err
	}
	cfg.Tuning = tuning
	return cfg, nil
}

// Validate reports every missing or inconsistent value at once.
func (c *Config) Validate() error {
	var errs []error
	required := func(name, v string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	address := func(name, v string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
			return
		}
		if _, err := solana.ParsePublicKey(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	required("SOLANA_RPC_ENDPOINT", c.RPCEndpoint)
	address("GAME_PROGRAM_ID", c.ProgramID)
	address("SOLBALLS_MINT", c.SolBallsMint)
	address("USDC_MINT", c.USDCMint)
	if c.OperatorKeyFile == "" && c.OperatorKey == "" {
		errs = append(errs, errors.New("OPERATOR_KEYPAIR or OPERATOR_PRIVATE_KEY is required"))
	}
	required("ADMIN_SECRET", c.AdminSecret)

	if !c.SkipSwap {
		address("TREASURY_WALLET", c.TreasuryWallet)
		address("RESERVE_MINT", c.ReserveMint)
		required("SWAP_API_URL", c.SwapAPIURL)
	}
	if !c.UseMockGacha {
		required("GACHA_API_URL", c.GachaAPIURL)
	}

	for name, p := range map[string]int{
		"TREASURY_PERCENT": c.TreasuryPercent,
		"RESERVE_PERCENT":  c.ReservePercent,
		"RETAINED_PERCENT": c.RetainedPercent,
	} {
		if p < 0 || p > 100 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 100], got %d", name, p))
		}
	}
	if sum := c.TreasuryPercent + c.ReservePercent + c.RetainedPercent; sum != 100 {
		errs = append(errs, fmt.Errorf("split percentages must sum to 100, got %d", sum))
	}
	if c.SlippageBps < 0 || c.SlippageBps > 10_000 {
		errs = append(errs, fmt.Errorf("SWAP_SLIPPAGE_BPS must be within [0, 10000], got %d", c.SlippageBps))
	}

	if c.PackCost == 0 {
		errs = append(errs, errors.New("PACK_COST must be positive"))
	}
	if c.MinPacksPerRun < 1 {
		errs = append(errs, fmt.Errorf("MIN_PACKS_PER_RUN must be at least 1, got %d", c.MinPacksPerRun))
	}
	if c.MaxVaultSize < 0 || c.MaxVaultSize > solana.MaxVaultSize {
		errs = append(errs, fmt.Errorf("MAX_VAULT_SIZE must be within [0, %d], got %d", solana.MaxVaultSize, c.MaxVaultSize))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, errors.New("TICK_INTERVAL must be positive"))
	}
	if c.RPCRateLimit < 0 {
		errs = append(errs, errors.New("RPC_RATE_LIMIT must not be negative"))
	}
	if !c.UseMemory && c.PostgresDSN == "" && c.ClickHouseDSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN or CLICKHOUSE_DSN is required (use --use-memory for in-memory storage)"))
	}

	if err := c.Tuning.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// OperatorKeypair loads the operator keypair from the keypair file, or from
// the base58 secret when no file is configured.
func (c *Config) OperatorKeypair() (*solana.Keypair, error) {
	if c.OperatorKeyFile != "" {
		return solana.LoadKeypairFile(c.OperatorKeyFile)
	}
	return solana.ParseKeypairBase58(c.OperatorKey)
}

// ExcludedMints are fungible mints never treated as collectibles.
func (c *Config) ExcludedMints() []string {
	var out []string
	for _, m := range []string{c.SolBallsMint, c.USDCMint, c.ReserveMint} {
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// LoadEnvFile loads KEY=VALUE lines from path into the environment.
// Variables already set are not overridden. A missing file is ignored.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
