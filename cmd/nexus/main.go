package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hpungsan/nexus/internal/config"
	"github.com/hpungsan/nexus/internal/db"
	"github.com/hpungsan/nexus/internal/mcp"
	"github.com/hpungsan/nexus/internal/metrics"
	"github.com/hpungsan/nexus/internal/ops"
	"github.com/hpungsan/nexus/internal/provider"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"save": true, "fetch": true, "search": true, "connections": true,
	"summarize": true, "digest": true, "delete": true, "list": true,
	"graph": true, "stats": true, "export": true, "import": true,
	"ui": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	return isHelpOrVersion(args)
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _ __   _____  ___   _ ___
  | '_ \ / _ \ \/ / | | / __|
  | | | |  __/>  <| |_| \__ \
  |_| |_|\___/_/\_\\__,_|___/

  Personal knowledge graph

  Usage: nexus <command> [options]
         nexus --help

  MCP server mode requires piped input.`)
}

// newLogger builds a JSON logger on stderr; stdout belongs to the MCP transport.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion(os.Args) {
		if err := newCLIApp(nil).Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".nexus")

	if err := config.LoadEnvFile(baseDir); err != nil {
		fatal("failed to load .env: %v", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		fatal("could not determine working directory: %v", err)
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fatal("%v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", zap.String("tools", strings.Join(unknown, ",")))
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("unknown types in disabled_types", zap.String("types", strings.Join(unknown, ",")))
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	providers, err := provider.New(context.Background(), cfg, logger)
	if err != nil {
		fatal("failed to configure providers: %v", err)
	}

	env := ops.NewEnv(database, cfg, providers, logger, metrics.NewCollector())

	// CLI mode: known subcommand
	if isCLIMode(os.Args) {
		if err := newCLIApp(env).Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'nexus --help' for usage.\n")
		os.Exit(1)
	}

	logger.Info("starting MCP server", zap.String("version", Version))
	if err := mcp.Run(env, Version); err != nil {
		fatal("%v", err)
	}
}
