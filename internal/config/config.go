package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"inventory-ledger/internal/core"
)

type Config struct {
	DatabaseURL    string        `mapstructure:"database_url"`
	ServerPort     string        `mapstructure:"server_port"`
	AllowedOrigins string        `mapstructure:"allowed_origins"`
	LogLevel       string        `mapstructure:"log_level"`
	RedisAddress   string        `mapstructure:"redis_address"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
	TxTimeout      time.Duration `mapstructure:"tx_timeout"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
	RunMigrations  bool          `mapstructure:"run_migrations"`

	// SupplierPayableAccount is the code prefix for per-supplier liability accounts.
	SupplierPayableAccount string `mapstructure:"supplier_payable_account"`
	// PurchaseReturnsAccount is the code of the account purchase returns are debited to.
	PurchaseReturnsAccount string `mapstructure:"purchase_returns_account"`
}

// Load reads .env (if present), then an optional config file, then the environment.
// Environment variables win. An empty path skips the config file.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("database_url", "")
	v.SetDefault("server_port", "8080")
	v.SetDefault("allowed_origins", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("redis_address", "")
	v.SetDefault("idempotency_ttl", 24*time.Hour)
	v.SetDefault("tx_timeout", 10*time.Second)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("run_migrations", true)
	v.SetDefault("supplier_payable_account", "2100")
	v.SetDefault("purchase_returns_account", "4900")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.ServerPort == "" {
		return errors.New("SERVER_PORT must not be empty")
	}
	if c.TxTimeout < 0 {
		return fmt.Errorf("TX_TIMEOUT must not be negative, got %s", c.TxTimeout)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive, got %s", c.IdempotencyTTL)
	}
	if c.SupplierPayableAccount == "" || c.PurchaseReturnsAccount == "" {
		return errors.New("SUPPLIER_PAYABLE_ACCOUNT and PURCHASE_RETURNS_ACCOUNT must not be empty")
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// AccountRules builds the posting rules from the configured account codes.
func (c Config) AccountRules() core.AccountRules {
	rules := core.DefaultAccountRules()
	rules.PurchaseReturns.Code = c.PurchaseReturnsAccount
	rules.SupplierPayablePrefix = c.SupplierPayableAccount
	return rules
}
