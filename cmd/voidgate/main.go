package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/Magdyz/void-keygate/internal/composition/gateshell"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "Path to voidgate.yaml (optional)")
	dataDir := flag.String("data-dir", "voidgate-data", "Directory for local gate data")
	store := flag.String("store", "bolt", "Secure storage backend: bolt | file | memory")
	keyringMode := flag.String("keyring", "software", "Key store backend: software | file | os")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("voidgate version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := gateshell.Run(ctx, gateshell.Options{
		ConfigPath:  *configPath,
		DataDir:     *dataDir,
		Store:       *store,
		Keyring:     *keyringMode,
		MetricsAddr: *metricsAddr,
	})
	if err != nil {
		log.Fatalf("voidgate failed: %v", err)
	}
}
