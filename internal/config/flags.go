package config

import (
	"flag"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/flagx"
)

var shortFlags = []string{"-a", "-d", "-r", "-k", "-n", "-w", "-s", "-l", "-p", "-t"}

// parseFlags applies the short command-line flags found in args and returns
// the arguments that are not config flags (including -c and its value).
//
// Supported flags:
//
//	-a string   gRPC health endpoint address (e.g., ":50052")
//	-d string   PostgreSQL DSN
//	-r string   ledger JSON-RPC URL
//	-k string   ledger contract address
//	-n int      entries per cycle
//	-w string   keywords for content generation
//	-s string   storage backend ("pinata" or "s3")
//	-l string   log level
//	-p string   winner policy ("max" or "min_legacy")
//	-t int      tally concurrency
func parseFlags(config *Config, args []string) []string {
	matched, rest := flagx.Split(args, shortFlags)
	rest = flagx.Strip(rest, []string{"-c", "-config"})

	fs := flag.NewFlagSet("contest", flag.ContinueOnError)

	fs.StringVar(&config.HealthAddr, "a", config.HealthAddr, "health endpoint address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.RPCURL, "r", config.RPCURL, "ledger RPC URL")
	fs.StringVar(&config.ContractAddress, "k", config.ContractAddress, "ledger contract address")
	fs.IntVar(&config.EntriesPerCycle, "n", config.EntriesPerCycle, "entries per cycle")
	fs.StringVar(&config.Keywords, "w", config.Keywords, "generation keywords")
	fs.StringVar(&config.StorageBackend, "s", config.StorageBackend, "storage backend")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.WinnerPolicy, "p", config.WinnerPolicy, "winner policy")
	fs.IntVar(&config.TallyConcurrency, "t", config.TallyConcurrency, "tally concurrency")

	if err := fs.Parse(matched); err != nil {
		panic(err)
	}

	return rest
}
