package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order when present; later files override earlier ones.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles() {
	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		// a broken env file must not stop the process, the real environment still applies
		_ = godotenv.Overload(file)
	}
}

// parseEnv reads the variables used by the deployment .env file.
func parseEnv(c *Config) {
	if v := os.Getenv("GAIA_NODE_DOMAIN"); v != "" {
		c.LLMBaseURL = v + "/v1"
	}
	c.LLMBaseURL = getEnv("LLM_BASE_URL", c.LLMBaseURL)
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	c.LLMAPIKey = getEnv("LLM_API_KEY", c.LLMAPIKey)

	c.TenorAPIKey = getEnv("TENOR_API_KEY", c.TenorAPIKey)
	c.TenorClientKey = getEnv("TENOR_CLIENT_KEY", c.TenorClientKey)

	c.DiscordToken = getEnv("DISCORD_BOT_TOKEN", c.DiscordToken)
	c.DiscordGuildID = getEnv("DISCORD_GUILD_ID", c.DiscordGuildID)
	c.DiscordChannelID = getEnv("DISCORD_CHANNEL_ID", c.DiscordChannelID)

	c.TwitterCookiesPath = getEnv("TWITTER_COOKIES_PATH", c.TwitterCookiesPath)

	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.PinataJWT = getEnv("PINATA_JWT", c.PinataJWT)
	c.PinataGateway = getEnv("PINATA_GATEWAY", c.PinataGateway)
	c.S3AccessKey = getEnv("S3_ACCESS_KEY", c.S3AccessKey)
	c.S3SecretKey = getEnv("S3_SECRET_KEY", c.S3SecretKey)
	c.S3Bucket = getEnv("S3_BUCKET", c.S3Bucket)
	c.S3Region = getEnv("S3_REGION", c.S3Region)
	c.S3BaseEndpoint = getEnv("S3_BASE_ENDPOINT", c.S3BaseEndpoint)

	c.RPCURL = getEnv("RPC_URL", c.RPCURL)
	c.ContractAddress = getEnv("CONTRACT_ADDRESS", c.ContractAddress)
	c.ChainID = int64(getEnvInt("CHAIN_ID", int(c.ChainID)))
	// the deployment .env spells it privateKey
	c.SignerKey = getEnv("privateKey", c.SignerKey)
	c.SignerKey = getEnv("PRIVATE_KEY", c.SignerKey)
	c.CreatorAddress = getEnv("CREATOR_ADDRESS", c.CreatorAddress)

	c.DatabaseDSN = getEnv("DATABASE_DSN", c.DatabaseDSN)
	c.EntriesPerCycle = getEnvInt("NUMBER_OF_MEMES_GENERATED", c.EntriesPerCycle)
	c.EntryTimeout = getEnvDuration("ENTRY_TIMEOUT", c.EntryTimeout)
	c.CallTimeout = getEnvDuration("CALL_TIMEOUT", c.CallTimeout)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
