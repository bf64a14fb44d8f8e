// Package gateshell is the composition root for the voidgate binary:
// it wires storage, the key store, metrics and logging into a gate and
// drives it from a terminal loop. Nothing outside cmd imports it.
package gateshell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Magdyz/void-keygate/internal/gesture"
	"github.com/Magdyz/void-keygate/internal/keygate"
	"github.com/Magdyz/void-keygate/internal/keystore"
	"github.com/Magdyz/void-keygate/internal/platform/privacylog"
	"github.com/Magdyz/void-keygate/internal/securestore"
)

type Options struct {
	ConfigPath  string
	DataDir     string
	Store       string // bolt | file | memory
	Keyring     string // software | file | os
	MetricsAddr string

	// Input and Output default to the process streams; tests swap them.
	Input     io.Reader
	Output    io.Writer
	LogOutput io.Writer
}

// Run builds the gate and hands control to the interactive loop until
// the input ends or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	if opts.DataDir == "" {
		opts.DataDir = "voidgate-data"
	}

	logger := slog.New(privacylog.WrapHandler(slog.NewTextHandler(opts.LogOutput, nil)))
	cfg := keygate.LoadConfig(opts.ConfigPath)

	storage, closeStorage, err := openStorage(opts)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStorage()

	keys, err := openKeystore(opts)
	if err != nil {
		return fmt.Errorf("open keystore: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := keygate.NewMetrics(registry)
	if opts.MetricsAddr != "" {
		srv := &http.Server{Addr: opts.MetricsAddr, Handler: metricsMux(registry)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("metrics listening", "addr", opts.MetricsAddr)
	}

	gate, err := keygate.New(keys, storage,
		keygate.WithConfig(cfg),
		keygate.WithLogger(logger),
		keygate.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	return runLoop(ctx, gate, cfg, opts)
}

func metricsMux(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return mux
}

func openStorage(opts Options) (securestore.Store, func(), error) {
	noop := func() {}
	switch opts.Store {
	case "", "bolt":
		pass, err := StoragePassphrase(opts.DataDir)
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(opts.DataDir, 0o700); err != nil {
			return nil, nil, err
		}
		store, err := securestore.OpenBolt(filepath.Join(opts.DataDir, "voidgate.db"), pass)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "file":
		pass, err := StoragePassphrase(opts.DataDir)
		if err != nil {
			return nil, nil, err
		}
		store, err := securestore.OpenFile(filepath.Join(opts.DataDir, "voidgate.enc"), pass)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case "memory":
		return securestore.NewMemoryStore(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", opts.Store)
	}
}

func openKeystore(opts Options) (keystore.Store, error) {
	switch opts.Keyring {
	case "", "software":
		return keystore.NewSoftwareStore(), nil
	case "file":
		pass, err := StoragePassphrase(opts.DataDir)
		if err != nil {
			return nil, err
		}
		return keystore.OpenKeyring(keystore.KeyringConfig{
			FileDir:        filepath.Join(opts.DataDir, "keyring"),
			FilePassphrase: pass,
			FileOnly:       true,
		})
	case "os":
		return keystore.OpenKeyring(keystore.KeyringConfig{})
	default:
		return nil, fmt.Errorf("unknown keyring backend %q", opts.Keyring)
	}
}

func runLoop(ctx context.Context, gate *keygate.Manager, cfg keygate.Config, opts Options) error {
	in := bufio.NewReader(opts.Input)
	out := opts.Output
	readLine := func() (string, error) {
		line, err := in.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprintln(out, "voidgate interactive shell; 'help' lists commands")
	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
		line, err := readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
		case "help":
			printHelp(out)
		case "register":
			handleRegister(gate, readLine, out, keygate.SlotReal)
		case "decoy":
			handleRegister(gate, readLine, out, keygate.SlotDecoy)
		case "starfield":
			handleStarRegister(gate, cfg, readLine, out, keygate.SlotReal)
		case "unlock":
			handleUnlock(ctx, gate, readLine, out)
		case "unlockstar":
			handleStarUnlock(ctx, gate, cfg, readLine, out)
		case "recover":
			handleRecover(gate, readLine, out)
		case "wipe":
			handleWipe(gate, readLine, out)
		case "status":
			printStatus(gate, out)
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q; 'help' lists commands\n", strings.TrimSpace(line))
		}
	}
}

func printHelp(out io.Writer) {
	fmt.Fprint(out, `commands:
  register    capture a rhythm for the real slot (prints the recovery phrase)
  decoy       capture a rhythm for the decoy slot
  starfield   register a star-field pattern for the real slot
  unlock      attempt an unlock with a tapped rhythm
  unlockstar  attempt an unlock with a star-field selection
  recover     restore the identity seed from its recovery phrase
  wipe        destroy all keys and templates
  status      show gate state
  quit        leave the shell
`)
}

func handleRegister(gate *keygate.Manager, readLine func() (string, error), out io.Writer, slot keygate.Slot) {
	pattern, err := CaptureRhythm(readLine, time.Now, out)
	if err != nil {
		fmt.Fprintf(out, "capture failed: %v\n", err)
		return
	}
	phrase, err := gate.Register(pattern, slot)
	if err != nil {
		fmt.Fprintf(out, "register failed: %v\n", err)
		return
	}
	if slot == keygate.SlotReal {
		fmt.Fprintln(out, "registered. write down the recovery phrase, it is shown once:")
		fmt.Fprintln(out, "  "+phrase)
	} else {
		fmt.Fprintln(out, "decoy pattern registered")
	}
}

func handleStarRegister(gate *keygate.Manager, cfg keygate.Config, readLine func() (string, error), out io.Writer, slot keygate.Slot) {
	field, seed, err := promptField(cfg, readLine, out)
	if err != nil {
		fmt.Fprintf(out, "field setup failed: %v\n", err)
		return
	}
	pattern, err := CaptureStarSelection(field, readLine, out)
	if err != nil {
		fmt.Fprintf(out, "capture failed: %v\n", err)
		return
	}
	phrase, err := gate.RegisterStarField(pattern, seed, slot)
	if err != nil {
		fmt.Fprintf(out, "register failed: %v\n", err)
		return
	}
	if slot == keygate.SlotReal {
		fmt.Fprintln(out, "registered. write down the recovery phrase, it is shown once:")
		fmt.Fprintln(out, "  "+phrase)
	}
}

func handleUnlock(ctx context.Context, gate *keygate.Manager, readLine func() (string, error), out io.Writer) {
	pattern, err := CaptureRhythm(readLine, time.Now, out)
	if err != nil {
		fmt.Fprintf(out, "capture failed: %v\n", err)
		return
	}
	res, err := gate.Unlock(ctx, pattern)
	printUnlockResult(out, res, err)
}

func handleStarUnlock(ctx context.Context, gate *keygate.Manager, cfg keygate.Config, readLine func() (string, error), out io.Writer) {
	field, _, err := promptField(cfg, readLine, out)
	if err != nil {
		fmt.Fprintf(out, "field setup failed: %v\n", err)
		return
	}
	pattern, err := CaptureStarSelection(field, readLine, out)
	if err != nil {
		fmt.Fprintf(out, "capture failed: %v\n", err)
		return
	}
	res, err := gate.Unlock(ctx, pattern)
	printUnlockResult(out, res, err)
}

// promptField rebuilds the landmark layout from a user-typed seed. The
// layout is what the user sees on screen; typing the same seed yields
// the same field the template was registered against.
func promptField(cfg keygate.Config, readLine func() (string, error), out io.Writer) (*gesture.StarField, []byte, error) {
	fmt.Fprintln(out, "field seed (any text you will remember):")
	line, err := readLine()
	if err != nil {
		return nil, nil, err
	}
	seed := []byte(strings.TrimSpace(line))
	field, err := gesture.NewStarField(seed, cfg.LandmarkCount)
	if err != nil {
		return nil, nil, err
	}
	return field, seed, nil
}

func printUnlockResult(out io.Writer, res keygate.UnlockResult, err error) {
	if err != nil {
		fmt.Fprintf(out, "unlock error: %v\n", err)
		return
	}
	switch r := res.(type) {
	case keygate.Success:
		// The demo prints only the fact of success. A real caller
		// would hand r.Seed to the identity layer and wipe it.
		fmt.Fprintf(out, "unlocked (%s slot)\n", r.Slot)
	case keygate.Failed:
		fmt.Fprintf(out, "no match; %d attempts remaining\n", r.AttemptsRemaining)
	case keygate.LockedOut:
		fmt.Fprintf(out, "locked out for %s\n", r.Remaining.Round(time.Second))
	}
}

func handleRecover(gate *keygate.Manager, readLine func() (string, error), out io.Writer) {
	fmt.Fprintln(out, "recovery phrase:")
	phrase, err := readLine()
	if err != nil {
		fmt.Fprintf(out, "read failed: %v\n", err)
		return
	}
	res, err := gate.Recover(phrase)
	if err != nil {
		fmt.Fprintf(out, "recover failed: %v\n", err)
		return
	}
	fmt.Fprintf(out, "identity %s restored\n", res.IdentityID)
	if res.NeedsNewPattern {
		fmt.Fprintln(out, "register a new pattern before the next unlock")
	}
}

func handleWipe(gate *keygate.Manager, readLine func() (string, error), out io.Writer) {
	fmt.Fprintln(out, "this destroys all keys and templates. type WIPE to confirm:")
	confirm, err := readLine()
	if err != nil || strings.TrimSpace(confirm) != "WIPE" {
		fmt.Fprintln(out, "wipe cancelled")
		return
	}
	if err := gate.PanicWipe(); err != nil {
		fmt.Fprintf(out, "wipe finished with errors: %v\n", err)
		return
	}
	fmt.Fprintln(out, "wiped")
}

func printStatus(gate *keygate.Manager, out io.Writer) {
	realSet, err := gate.HasRealPattern()
	if err != nil {
		fmt.Fprintf(out, "status unavailable: %v\n", err)
		return
	}
	decoySet, err := gate.HasDecoyPattern()
	if err != nil {
		fmt.Fprintf(out, "status unavailable: %v\n", err)
		return
	}
	fmt.Fprintf(out, "real pattern:  %v\n", realSet)
	fmt.Fprintf(out, "decoy pattern: %v\n", decoySet)
	fmt.Fprintf(out, "security tier: %s\n", gate.SecurityTier())
	if gate.IsLockedOut() {
		fmt.Fprintf(out, "locked out for %s\n", gate.RemainingLockout().Round(time.Second))
	} else {
		fmt.Fprintf(out, "failed attempts: %d\n", gate.FailedAttempts())
	}
}
