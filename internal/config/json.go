package config

import (
	"encoding/json"
	"os"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/flagx"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/timex"
)

// JsonConfig is the on-disk shape of the -c/-config file. Durations accept
// both "30s" strings and integer nanoseconds. Fields left out of the file
// keep their previous value.
type JsonConfig struct {
	LLMBaseURL string `json:"llm_base_url"`
	LLMModel   string `json:"llm_model"`
	LLMAPIKey  string `json:"llm_api_key"`

	TenorBaseURL   string `json:"tenor_base_url"`
	TenorAPIKey    string `json:"tenor_api_key"`
	TenorClientKey string `json:"tenor_client_key"`

	DiscordToken     string `json:"discord_token"`
	DiscordGuildID   string `json:"discord_guild_id"`
	DiscordChannelID string `json:"discord_channel_id"`

	TwitterCookiesPath string `json:"twitter_cookies_path"`

	StorageBackend string `json:"storage_backend"`
	PinataJWT      string `json:"pinata_jwt"`
	PinataAPIURL   string `json:"pinata_api_url"`
	PinataGateway  string `json:"pinata_gateway"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	RPCURL           string `json:"rpc_url"`
	ContractAddress  string `json:"contract_address"`
	ChainID          int64  `json:"chain_id"`
	SignerKey        string `json:"signer_key"`
	CreatorAddress   string `json:"creator_address"`
	LedgerStartBlock uint64 `json:"ledger_start_block"`
	GasLimit         uint64 `json:"gas_limit"`

	DatabaseDSN string `json:"database_dsn"`

	EntriesPerCycle  int    `json:"entries_per_cycle"`
	Keywords         string `json:"keywords"`
	TallyConcurrency int    `json:"tally_concurrency"`
	WinnerPolicy     string `json:"winner_policy"`

	CallTimeout      timex.Duration `json:"call_timeout"`
	EntryTimeout     timex.Duration `json:"entry_timeout"`
	RetryMaxRetries  int            `json:"retry_max_retries"`
	RetryBaseDelay   timex.Duration `json:"retry_base_delay"`
	RetryMaxDelay    timex.Duration `json:"retry_max_delay"`
	DownloadMaxBytes int64          `json:"download_max_bytes"`

	FinalityTimeout   timex.Duration `json:"finality_timeout"`
	ReconcileInterval timex.Duration `json:"reconcile_interval"`
	OutboxMaxAttempts int            `json:"outbox_max_attempts"`

	HealthAddr string `json:"health_addr"`
	LogLevel   string `json:"log_level"`
}

// parseJson overlays values from the file named by -c or -config in args.
// Nothing happens when neither flag is present. An unreadable file or invalid
// JSON panics: the process cannot run on a half-applied config.
func parseJson(config *Config, args []string) {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.applyTo(config)
}

func (c *JsonConfig) applyTo(config *Config) {
	setString(&config.LLMBaseURL, c.LLMBaseURL)
	setString(&config.LLMModel, c.LLMModel)
	setString(&config.LLMAPIKey, c.LLMAPIKey)
	setString(&config.TenorBaseURL, c.TenorBaseURL)
	setString(&config.TenorAPIKey, c.TenorAPIKey)
	setString(&config.TenorClientKey, c.TenorClientKey)
	setString(&config.DiscordToken, c.DiscordToken)
	setString(&config.DiscordGuildID, c.DiscordGuildID)
	setString(&config.DiscordChannelID, c.DiscordChannelID)
	setString(&config.TwitterCookiesPath, c.TwitterCookiesPath)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.PinataJWT, c.PinataJWT)
	setString(&config.PinataAPIURL, c.PinataAPIURL)
	setString(&config.PinataGateway, c.PinataGateway)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.RPCURL, c.RPCURL)
	setString(&config.ContractAddress, c.ContractAddress)
	setNumber(&config.ChainID, c.ChainID)
	setString(&config.SignerKey, c.SignerKey)
	setString(&config.CreatorAddress, c.CreatorAddress)
	setNumber(&config.LedgerStartBlock, c.LedgerStartBlock)
	setNumber(&config.GasLimit, c.GasLimit)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setNumber(&config.EntriesPerCycle, c.EntriesPerCycle)
	setString(&config.Keywords, c.Keywords)
	setNumber(&config.TallyConcurrency, c.TallyConcurrency)
	setString(&config.WinnerPolicy, c.WinnerPolicy)
	setNumber(&config.CallTimeout, c.CallTimeout.Duration)
	setNumber(&config.EntryTimeout, c.EntryTimeout.Duration)
	setNumber(&config.RetryMaxRetries, c.RetryMaxRetries)
	setNumber(&config.RetryBaseDelay, c.RetryBaseDelay.Duration)
	setNumber(&config.RetryMaxDelay, c.RetryMaxDelay.Duration)
	setNumber(&config.DownloadMaxBytes, c.DownloadMaxBytes)
	setNumber(&config.FinalityTimeout, c.FinalityTimeout.Duration)
	setNumber(&config.ReconcileInterval, c.ReconcileInterval.Duration)
	setNumber(&config.OutboxMaxAttempts, c.OutboxMaxAttempts)
	setString(&config.HealthAddr, c.HealthAddr)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

type number interface {
	~int | ~int64 | ~uint64
}

func setNumber[T number](dst *T, v T) {
	if v != 0 {
		*dst = v
	}
}
