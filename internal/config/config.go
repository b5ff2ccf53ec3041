package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Multisig MultisigConfig
	Chains   []ChainConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
	Enabled  bool
}

// MultisigConfig holds quorum-engine tunables
type MultisigConfig struct {
	ProposalExpiry time.Duration // pending transactions expire after this
	LockTTL        time.Duration // per-transaction lock lifetime
	RPCTimeout     time.Duration // bound on chain RPC calls
}

// ChainConfig holds per-chain execution settings
type ChainConfig struct {
	Key            string // stable key referenced by wallets, e.g. "base-sepolia"
	ChainID        int64
	RPCURL         string
	FactoryAddress string // proxy factory for wallet deployment
	MasterCopy     string // wallet singleton the factory clones
	RelayerKey     string // hex private key of the submitting relayer, empty disables on-chain execution
	OnChainEnabled bool
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "quorumvault"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
		Multisig: MultisigConfig{
			ProposalExpiry: getEnvAsDuration("MULTISIG_PROPOSAL_EXPIRY", 7*24*time.Hour),
			LockTTL:        getEnvAsDuration("MULTISIG_LOCK_TTL", 30*time.Second),
			RPCTimeout:     getEnvAsDuration("MULTISIG_RPC_TIMEOUT", 30*time.Second),
		},
		Chains: []ChainConfig{
			{
				Key:            "base-sepolia",
				ChainID:        84532,
				RPCURL:         getEnv("BASE_SEPOLIA_RPC_URL", "https://sepolia.base.org"),
				FactoryAddress: getEnv("BASE_SEPOLIA_FACTORY_ADDRESS", ""),
				MasterCopy:     getEnv("BASE_SEPOLIA_MASTER_COPY", ""),
				RelayerKey:     getEnv("BASE_SEPOLIA_RELAYER_KEY", ""),
				OnChainEnabled: getEnvAsBool("BASE_SEPOLIA_ONCHAIN_ENABLED", false),
			},
			{
				Key:            "bsc-testnet",
				ChainID:        97,
				RPCURL:         getEnv("BSC_TESTNET_RPC_URL", "https://data-seed-prebsc-1-s1.binance.org:8545"),
				FactoryAddress: getEnv("BSC_TESTNET_FACTORY_ADDRESS", ""),
				MasterCopy:     getEnv("BSC_TESTNET_MASTER_COPY", ""),
				RelayerKey:     getEnv("BSC_TESTNET_RELAYER_KEY", ""),
				OnChainEnabled: getEnvAsBool("BSC_TESTNET_ONCHAIN_ENABLED", false),
			},
		},
	}
}

// ChainByKey returns the chain config for a key, or nil when unknown
func (c *Config) ChainByKey(key string) *ChainConfig {
	for i := range c.Chains {
		if c.Chains[i].Key == key {
			return &c.Chains[i]
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
