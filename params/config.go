package params

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Node struct {
	APIAddr string // REST/WS listen address
	DataDir string // pebble archive + WAL + logs
	LogFile string
}

type Exchange struct {
	// FeeAccount collects taker fees. FeePercent is the integer percentage
	// charged on the get-side amount of every fill.
	FeeAccount string
	FeePercent int64
}

type Genesis struct {
	// Deployer receives the full supply of every token at deployment.
	Deployer    string
	TokenSupply int64 // whole tokens per deployed token
	SeedOnStart bool  // fund the devnet users at boot
}

type API struct {
	// RequireSignatures rejects mutating requests whose secp256k1 signature
	// does not recover to the claimed caller. Off by default for devnet
	// seeding.
	RequireSignatures bool
}

type Config struct {
	Node     Node
	Exchange Exchange
	Genesis  Genesis
	API      API
}

func Default() Config {
	return Config{
		Node: Node{
			APIAddr: ":8545",
			DataDir: "data",
			LogFile: "data/node.log",
		},
		Exchange: Exchange{
			FeeAccount: "0x90F79bf6EB2c4f870365E785982E1f101E93b906",
			FeePercent: 10,
		},
		Genesis: Genesis{
			Deployer:    "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
			TokenSupply: 1000000,
			SeedOnStart: true,
		},
		API: API{
			RequireSignatures: false,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.Node.APIAddr = getEnv("API_ADDR", cfg.Node.APIAddr)
	cfg.Node.DataDir = getEnv("DATA_DIR", cfg.Node.DataDir)
	cfg.Node.LogFile = getEnv("LOG_FILE", cfg.Node.LogFile)

	cfg.Exchange.FeeAccount = getEnv("FEE_ACCOUNT", cfg.Exchange.FeeAccount)
	cfg.Exchange.FeePercent = getEnvInt64("FEE_PERCENT", cfg.Exchange.FeePercent)

	cfg.Genesis.Deployer = getEnv("DEPLOYER", cfg.Genesis.Deployer)
	cfg.Genesis.TokenSupply = getEnvInt64("TOKEN_SUPPLY", cfg.Genesis.TokenSupply)
	cfg.Genesis.SeedOnStart = getEnvBool("SEED_ON_START", cfg.Genesis.SeedOnStart)

	cfg.API.RequireSignatures = getEnvBool("REQUIRE_SIGNATURES", cfg.API.RequireSignatures)

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
