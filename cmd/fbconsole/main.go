package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/filebrain/console/internal/app"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override console config path (optional)")
	prefsPath := flag.String("prefs", "", "override preferences path (optional)")
	envFile := flag.String("env", ".env", "dotenv file with FILEBRAIN_* overrides; ignored when missing")
	pollSeconds := flag.Int("poll", 0, "fallback poll interval in seconds (optional, defaults to 5s)")
	verbose := flag.Bool("verbose", false, "write debug records to the log file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("fbconsole", version)
		return 0
	}

	// Existing environment variables win over the dotenv file.
	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "fbconsole: load %s: %v\n", *envFile, err)
			return 1
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		PrefsPath:  *prefsPath,
		PollEvery:  *pollSeconds,
		Verbose:    *verbose,
		Version:    version,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "fbconsole: %v\n", err)
		return 1
	}
	return 0
}
