package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	modeSeed = "seed"
	modeTest = "test"
)

var (
	envFileFlag           = flag.String("env", "", "Path to .env file")
	flagMode              = flag.String("mode", "", strings.Join([]string{modeSeed, modeTest}, " | "))
	flagVisitorCount      = flag.Int("visitor-count", 100, "number of visitors to seed")
	flagAuthorizedPercent = flag.Int("authorized-percent", 50, "percent of seeded visitors that are authorized")
	flagRatePerSecond     = flag.Int("rps", 100, "Requests per second")
	flagDuration          = flag.Int("duration", 10, "Duration of the load test (seconds)")
	flagKnownPercent      = flag.Int("known-percent", 80, "Percent of events carrying a known face match")
	flagTargetURL         = flag.String("target", "http://localhost:8080", "Base URL of the running server")
)

func main() {
	flag.Parse()

	var err error

	if len(*envFileFlag) > 0 {
		err = godotenv.Load(*envFileFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
		}
	}

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(logger)

	switch *flagMode {
	case modeSeed:
		err = seed(*flagVisitorCount, *flagAuthorizedPercent, os.Getenv)
	case modeTest:
		err = load(*flagTargetURL, *flagVisitorCount, *flagKnownPercent, os.Getenv, *flagRatePerSecond, *flagDuration)
	default:
		err = fmt.Errorf("unknown mode: '%s'", *flagMode)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
