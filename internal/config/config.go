package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Well-known chain IDs the wallet layer will connect to.
const (
	ChainBase        = 8453
	ChainBaseSepolia = 84532
)

type Config struct {
	Backend    BackendConfig
	Generation GenerationConfig
	Chain      ChainConfig
}

// BackendConfig covers the external HTTP services the tool talks to.
type BackendConfig struct {
	BaseURL        string // metadata upload + user accounts
	ProfileAPIURL  string // profile resolution
	ExploreAPIURL  string // market rankings
	ImageProxyBase string // relay for reference images blocked on direct fetch
}

// GenerationConfig covers the image generation providers.
type GenerationConfig struct {
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	Primary      string // "gemini" or "openai"; the other becomes the fallback
}

// ChainConfig covers wallet and mint settings.
type ChainConfig struct {
	RPCEndpoint          string
	ChainID              int
	WalletConnectProject string
	PlatformReferrer     string
	CoinFactoryAddress   string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first without overriding variables already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Backend: BackendConfig{
			BaseURL:        getEnv("BACKEND_BASE_URL", "https://zora.devanshkaria.dev"),
			ProfileAPIURL:  getEnv("PROFILE_API_URL", "https://api-sdk.zora.engineering"),
			ExploreAPIURL:  getEnv("EXPLORE_API_URL", "https://api-sdk.zora.engineering"),
			ImageProxyBase: getEnv("IMAGE_PROXY_BASE", "https://corsproxy.io/"),
		},
		Generation: GenerationConfig{
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp-image-generation"),
			OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-image-1"),
			Primary:      getEnv("GENERATION_PRIMARY", "gemini"),
		},
		Chain: ChainConfig{
			RPCEndpoint:          getEnv("RPC_ENDPOINT", "https://mainnet.base.org"),
			ChainID:              getEnvAsInt("CHAIN_ID", ChainBase),
			WalletConnectProject: getEnv("WALLETCONNECT_PROJECT_ID", "YOUR_PROJECT_ID"),
			PlatformReferrer:     getEnv("PLATFORM_REFERRER", ""),
			CoinFactoryAddress:   getEnv("COIN_FACTORY_ADDRESS", ""),
		},
	}
}

// AllowedChain reports whether id is one of the supported chains.
func AllowedChain(id int) bool {
	return id == ChainBase || id == ChainBaseSepolia
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
