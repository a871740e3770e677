// Command assetscout discovers network printers over SNMP and serves the
// resulting inventory over HTTP.
//
//	assetscout [serve] [-config f]
//	assetscout scan [-config f] [-timeout d]
//	assetscout service install|uninstall|start|stop|restart|run|status [-config f]
//	assetscout token -subject NAME [-ttl d] [-config f]
//	assetscout backup [-out archive] [-config f]
//	assetscout restore -in archive [-dir d] [-force]
//	assetscout version
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/HerbHall/assetscout/internal/config"
	"github.com/HerbHall/assetscout/internal/version"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches to a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args, stderr)
	case "scan":
		err = runScan(args, stdout, stderr)
	case "service":
		err = runService(args, stdout, stderr)
	case "token":
		err = runToken(args, stdout, stderr)
	case "backup":
		err = runBackup(args, stdout, stderr)
	case "restore":
		err = runRestore(args, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.Info())
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		fmt.Fprintln(stderr, "usage: assetscout [serve|scan|service|token|backup|restore|version] [flags]")
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "assetscout %s: %v\n", cmd, err)
		return 1
	}
	return 0
}

// loadConfig reads configuration and builds the logger from it. The
// logger writes to stderr so stdout stays clean for command output.
func loadConfig(configPath string) (*viper.Viper, *zap.Logger, error) {
	v, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	logger, err := config.NewLogger(v)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}

	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Debug("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}
	return v, logger, nil
}
