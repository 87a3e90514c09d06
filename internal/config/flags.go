package config

import (
	"flag"
	"os"
	"strings"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   database DSN (sqlite file or postgres URL)
//	-u int      console user id
//	-l string   log level (debug, info, warn, error)
//
// os.Args is filtered down to the flags handled here, so arguments owned by
// other components (notably the test runner) never break parsing.
func parseFlags(cfg *Config) {
	args := filterArgs(os.Args[1:], []string{"-d", "-u", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.Int64Var(&cfg.ConsoleUserID, "u", cfg.ConsoleUserID, "console user id")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

// filterArgs keeps only the allowed flags and their values, accepting both
// the "-f value" and "-f=value" forms.
func filterArgs(args, allowed []string) []string {
	keep := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		keep[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := keep[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}
		if _, ok := keep[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		// The next argument is this flag's value unless it is another flag.
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}
