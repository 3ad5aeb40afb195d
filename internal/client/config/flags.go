package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/cropauth/internal/flagx"
)

// GlobalFlags lists the flags parseFlags owns. The CLI skips them when
// locating the subcommand.
var GlobalFlags = []string{"-a", "-token", "-timeout", "-c", "-config", "--config"}

// parseFlags overlays -a, -token and -timeout (seconds) onto cfg.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-token", "-timeout"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "bearer token")
	timeout := fs.Int("timeout", int(cfg.Timeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "timeout" {
			cfg.Timeout = time.Duration(*timeout) * time.Second
		}
	})
}
