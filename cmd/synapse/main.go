package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/toyz/synapse/internal/config"
	"github.com/toyz/synapse/internal/diagnostics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// options are the flags shared by every command
type options struct {
	configPath string
	adapter    string
	port       int
	prefix     string
	logLevel   string
	quiet      bool
	verbose    bool
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: synapse <command> [options]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  serve     Start the demo API on the configured host framework\n")
	fmt.Fprintf(w, "  routes    Print the resolved route table and exit\n")
	fmt.Fprintf(w, "\nRun 'synapse <command> -help' for command options.\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  synapse serve -adapter=gin -port=3000\n")
	fmt.Fprintf(w, "  synapse serve -config=synapse.yaml -prefix=/api\n")
	fmt.Fprintf(w, "  synapse routes -prefix=/api\n")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "serve", "routes":
	case "help", "-help", "--help", "-h":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", cmd)
		usage(stderr)
		return 2
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.configPath, "config", "synapse.yaml", "Path to the YAML config file (optional)")
	fs.StringVar(&opts.prefix, "prefix", "", "Global route prefix (overrides config)")
	fs.BoolVar(&opts.quiet, "quiet", false, "Only show errors")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose output")
	if cmd == "serve" {
		fs.StringVar(&opts.adapter, "adapter", "", "Host framework: echo, gin, fiber, chi or http (overrides config)")
		fs.IntVar(&opts.port, "port", 0, "Port to listen on (overrides config)")
		fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	}
	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	level := diagnostics.InfoLevel
	switch {
	case opts.quiet:
		level = diagnostics.ErrorLevel
	case opts.verbose:
		level = diagnostics.VerboseLevel
	}
	out := diagnostics.NewWithWriters(level, stdout, stderr)
	if stdout == os.Stdout {
		out = diagnostics.New(level)
	}

	cfg, err := loadConfig(fs, opts)
	if err != nil {
		out.Report(err)
		return 1
	}

	switch cmd {
	case "routes":
		err = printRoutes(ctx, cfg, out)
	default:
		err = serve(ctx, cfg, out, stdout)
	}
	if err != nil {
		out.Report(err)
		return 1
	}
	return 0
}

// loadConfig reads the config file and environment, then applies flags the user set explicitly
func loadConfig(fs *flag.FlagSet, opts options) (*config.Config, error) {
	cfg, err := (&config.Loader{}).Read(opts.configPath)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "adapter":
			cfg.Server.Adapter = opts.adapter
		case "port":
			cfg.Server.Port = opts.port
		case "prefix":
			cfg.Server.Prefix = opts.prefix
		case "log-level":
			cfg.Log.Level = opts.logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printRoutes(ctx context.Context, cfg *config.Config, out *diagnostics.Reporter) error {
	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	out.Section("Routes")
	out.Routes(cfg.Server.Prefix, a.server.Routes())
	return nil
}
