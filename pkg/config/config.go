package config

import (
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. RELAYER_DESTINATION_RPC_URL
const EnvPrefix = "RELAYER"

// Store drivers
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config represents the relayer configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Source      SourceConfig      `mapstructure:"source"`
	Destination DestinationConfig `mapstructure:"destination"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	AuditLog    AuditLogConfig    `mapstructure:"audit_log"`
	Store       StoreConfig       `mapstructure:"store"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig contains admin HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host" default:"0.0.0.0"`
	Port            int           `mapstructure:"port" default:"8080" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" default:"30s"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" default:"90s"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" default:"60s"`
	// AutoStart starts the relayer as soon as the process is up
	AutoStart bool `mapstructure:"auto_start" default:"true"`
}

// SourceConfig contains Stacks watcher settings
type SourceConfig struct {
	Network           string  `mapstructure:"network" default:"mainnet" validate:"required"`
	APIURL            string  `mapstructure:"api_url" validate:"required,url"`
	WSURL             string  `mapstructure:"ws_url" validate:"omitempty,url"`
	Mode              string  `mapstructure:"mode" default:"polling" validate:"oneof=polling streaming"`
	AssetIdentifier   string  `mapstructure:"asset_identifier" validate:"required"`
	GatewayAddress    string  `mapstructure:"gateway_address" validate:"required"`
	CustodianContract string  `mapstructure:"custodian_contract" validate:"required,contains=."`
	CustodianFunction string  `mapstructure:"custodian_function" default:"get-custodian" validate:"required"`
	StartHeight       uint64  `mapstructure:"start_height"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"10" validate:"gte=0"`
	Decimals          int32   `mapstructure:"decimals" default:"8" validate:"gte=0,lte=36"`
}

// DestinationConfig contains EVM submitter settings
type DestinationConfig struct {
	Network                  string        `mapstructure:"network" validate:"required"`
	ChainID                  int64         `mapstructure:"chain_id" validate:"required,gt=0"`
	RPCURL                   string        `mapstructure:"rpc_url" validate:"required,url"`
	WSURL                    string        `mapstructure:"ws_url" validate:"omitempty,url"`
	BridgeContract           string        `mapstructure:"bridge_contract" validate:"required"`
	RelayerPrivateKey        string        `mapstructure:"relayer_private_key" validate:"required"`
	GasLimit                 uint64        `mapstructure:"gas_limit" default:"500000"`
	MaxGasPrice              string        `mapstructure:"max_gas_price"`
	FeeQuoteTimeout          time.Duration `mapstructure:"fee_quote_timeout" default:"5s"`
	ReceiptPollInterval      time.Duration `mapstructure:"receipt_poll_interval" default:"2s"`
	ReceiptTimeout           time.Duration `mapstructure:"receipt_timeout"`
	ConfirmationPollInterval time.Duration `mapstructure:"confirmation_poll_interval" default:"15s"`
	ConfirmationStartBlock   uint64        `mapstructure:"confirmation_start_block"`
	LookbackBlocks           uint64        `mapstructure:"lookback_blocks" default:"1000"`
	LogBlockRange            uint64        `mapstructure:"log_block_range" default:"2000" validate:"gt=0"`
}

// MonitoringConfig contains loop timing and metrics settings
type MonitoringConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" default:"10s"`
	RetryDelay   time.Duration `mapstructure:"retry_delay" default:"5s"`
	// MaxDepositAttempts bounds non-transient hand-off failures of one deposit
	MaxDepositAttempts int  `mapstructure:"max_deposit_attempts" default:"5" validate:"gt=0"`
	MetricsEnabled     bool `mapstructure:"metrics_enabled" default:"true"`
}

// AuditLogConfig sizes the in-memory audit buffer
type AuditLogConfig struct {
	Capacity int `mapstructure:"capacity" default:"1000" validate:"gt=0"`
	// Mirror writes every audit entry to stdout
	Mirror bool `mapstructure:"mirror" default:"true"`
}

// StoreConfig selects the processed-message record store
type StoreConfig struct {
	Driver   string         `mapstructure:"driver" default:"memory" validate:"oneof=memory postgres redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host" default:"localhost"`
	Port     int    `mapstructure:"port" default:"5432"`
	User     string `mapstructure:"user" default:"postgres"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database" default:"relayer"`
	SSLMode  string `mapstructure:"ssl_mode" default:"disable"`
}

// RedisConfig contains redis connection settings
type RedisConfig struct {
	Addr      string `mapstructure:"addr" default:"localhost:6379"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix" default:"relayer"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level" default:"info"`
	Format     string `mapstructure:"format" default:"json" validate:"oneof=json console"`
	OutputPath string `mapstructure:"output_path" default:"stderr"`
}

// Load reads the relayer configuration from a YAML file and RELAYER_* environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	bindEnv(v, Config{})

	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks struct constraints and the cross-field rules tags cannot express
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Source.Mode == "streaming" && c.Source.WSURL == "" {
		return errors.New("source.ws_url is required in streaming mode")
	}
	if !common.IsHexAddress(c.Destination.BridgeContract) {
		return fmt.Errorf("destination.bridge_contract %q is not an address", c.Destination.BridgeContract)
	}
	if _, err := crypto.HexToECDSA(strings.TrimPrefix(c.Destination.RelayerPrivateKey, "0x")); err != nil {
		return errors.New("destination.relayer_private_key is not a valid hex key")
	}
	if _, err := c.Destination.MaxGasPriceWei(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case StorePostgres:
		if c.Store.Database.Host == "" {
			return errors.New("store.database.host is required for the postgres store")
		}
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for the redis store")
		}
	}
	return nil
}

// MaxGasPriceWei parses the gas price cap; nil means uncapped
func (c *DestinationConfig) MaxGasPriceWei() (*big.Int, error) {
	if c.MaxGasPrice == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(c.MaxGasPrice, 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("destination.max_gas_price %q is not a positive integer (wei)", c.MaxGasPrice)
	}
	return v, nil
}

// GetConnectionString returns a PostgreSQL connection URL
func (c *DatabaseConfig) GetConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// RedactedConfig is the public view of the configuration. Secrets are never included.
type RedactedConfig struct {
	Source struct {
		Network           string `json:"network"`
		APIURL            string `json:"api_url"`
		WSURL             string `json:"ws_url,omitempty"`
		Mode              string `json:"mode"`
		AssetIdentifier   string `json:"asset_identifier"`
		GatewayAddress    string `json:"gateway_address"`
		CustodianContract string `json:"custodian_contract"`
		StartHeight       uint64 `json:"start_height"`
	} `json:"source"`
	Destination struct {
		Network         string `json:"network"`
		ChainID         int64  `json:"chain_id"`
		RPCURL          string `json:"rpc_url"`
		WSURL           string `json:"ws_url,omitempty"`
		BridgeContract  string `json:"bridge_contract"`
		RelayerAddress  string `json:"relayer_address"`
		GasLimit        uint64 `json:"gas_limit"`
		MaxGasPrice     string `json:"max_gas_price,omitempty"`
		FeeQuoteTimeout string `json:"fee_quote_timeout"`
	} `json:"destination"`
	Monitoring struct {
		PollInterval       string `json:"poll_interval"`
		RetryDelay         string `json:"retry_delay"`
		MaxDepositAttempts int    `json:"max_deposit_attempts"`
	} `json:"monitoring"`
	AuditLogCapacity int    `json:"audit_log_capacity"`
	StoreDriver      string `json:"store_driver"`
}

// Redacted builds the public configuration view. URLs lose any embedded credentials.
func (c *Config) Redacted() RedactedConfig {
	var r RedactedConfig

	r.Source.Network = c.Source.Network
	r.Source.APIURL = stripCredentials(c.Source.APIURL)
	r.Source.WSURL = stripCredentials(c.Source.WSURL)
	r.Source.Mode = c.Source.Mode
	r.Source.AssetIdentifier = c.Source.AssetIdentifier
	r.Source.GatewayAddress = c.Source.GatewayAddress
	r.Source.CustodianContract = c.Source.CustodianContract
	r.Source.StartHeight = c.Source.StartHeight

	r.Destination.Network = c.Destination.Network
	r.Destination.ChainID = c.Destination.ChainID
	r.Destination.RPCURL = stripCredentials(c.Destination.RPCURL)
	r.Destination.WSURL = stripCredentials(c.Destination.WSURL)
	r.Destination.BridgeContract = c.Destination.BridgeContract
	if key, err := crypto.HexToECDSA(strings.TrimPrefix(c.Destination.RelayerPrivateKey, "0x")); err == nil {
		r.Destination.RelayerAddress = crypto.PubkeyToAddress(key.PublicKey).Hex()
	}
	r.Destination.GasLimit = c.Destination.GasLimit
	r.Destination.MaxGasPrice = c.Destination.MaxGasPrice
	r.Destination.FeeQuoteTimeout = c.Destination.FeeQuoteTimeout.String()

	r.Monitoring.PollInterval = c.Monitoring.PollInterval.String()
	r.Monitoring.RetryDelay = c.Monitoring.RetryDelay.String()
	r.Monitoring.MaxDepositAttempts = c.Monitoring.MaxDepositAttempts
	r.AuditLogCapacity = c.AuditLog.Capacity
	r.StoreDriver = c.Store.Driver
	return r
}

// bindEnv registers every mapstructure key so AutomaticEnv overrides reach Unmarshal
// even when the key is absent from the file.
func bindEnv(v *viper.Viper, iface any, parts ...string) {
	t := reflect.TypeOf(iface)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		path := append(append([]string{}, parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnv(v, reflect.Zero(f.Type).Interface(), path...)
			continue
		}
		_ = v.BindEnv(strings.Join(path, "."))
	}
}

func stripCredentials(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.User = nil
	return u.String()
}
