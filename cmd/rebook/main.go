// Package main is a one-shot command that rebooks a single website booking.
//
// Usage:
//
//	rebook -booking path/to/booking.json [-dry-run]
//
// The result (or, with -dry-run, the converted booking) is printed as JSON on stdout.
// Logs go to stderr. Exit code 0 means the booking was made, 1 that it was not, and 2
// that the command line or the booking file was unusable.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/flight-search/consolidator-rebooking/internal/adapter/sitebooking"
	"github.com/flight-search/consolidator-rebooking/internal/bootstrap"
	"github.com/flight-search/consolidator-rebooking/internal/config"
	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &command{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		loadConfig: config.Load,
	}
	code := c.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// command holds the process I/O so the whole run can be exercised in tests.
type command struct {
	stdout     io.Writer
	stderr     io.Writer
	loadConfig func() (*config.Config, error)
	options    []bootstrap.Option
}

func (c *command) run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("rebook", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	bookingPath := fs.String("booking", "", "path to the site booking record (JSON); - reads stdin")
	dryRun := fs.Bool("dry-run", false, "print the converted booking without opening a browser")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *bookingPath == "" || fs.NArg() > 0 {
		fmt.Fprintln(c.stderr, "rebook: -booking is required and no positional arguments are accepted")
		fs.Usage()
		return exitUsage
	}

	data, err := c.readBooking(*bookingPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "rebook: %v\n", err)
		return exitUsage
	}

	if *dryRun {
		if err := c.print(data); err != nil {
			return exitFailure
		}
		return exitOK
	}

	result, err := c.rebook(ctx, data)
	if err != nil {
		fmt.Fprintf(c.stderr, "rebook: %v\n", err)
		return exitFailure
	}
	if err := c.print(result); err != nil || !result.Success {
		return exitFailure
	}
	return exitOK
}

// readBooking loads, converts and validates the booking record.
func (c *command) readBooking(path string) (*domain.BookingData, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read booking: %w", err)
	}

	record, err := sitebooking.ParseRecord(raw)
	if err != nil {
		return nil, err
	}

	data := sitebooking.Convert(record)
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("booking cannot be rebooked: %w", err)
	}
	return &data, nil
}

func (c *command) rebook(ctx context.Context, data *domain.BookingData) (domain.BookingResult, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return domain.BookingResult{}, err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	log := logger.NewWithOutput(logCfg, c.stderr)

	app, err := bootstrap.New(ctx, cfg, log, c.options...)
	if err != nil {
		return domain.BookingResult{}, err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release resources")
		}
	}()

	return app.UseCase.Rebook(ctx, data), nil
}

func (c *command) print(v interface{}) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(c.stderr, "rebook: write output: %v\n", err)
		return err
	}
	return nil
}
