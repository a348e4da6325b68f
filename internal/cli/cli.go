package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/clusterpass/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// listFlag collects a comma-separated flag that may also be repeated.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*l = append(*l, item)
		}
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("clusterpass", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
clusterpass - Groups compiler-supported nodes of a dataflow graph into
clusters and replaces each cluster with a single call node.

Usage:
  clusterpass [options] GRAPH_PATH...

Arguments:
  GRAPH_PATH
    Path to a graph file (.hcl or .json) or a directory containing them.

Options:
`)
		flagSet.PrintDefaults()
	}

	var configPaths, dumpPhases, disableOps listFlag
	flagSet.Var(&configPaths, "config", "Path to a pipeline configuration file or directory. May be repeated.")
	flagSet.Var(&configPaths, "c", "Path to a pipeline configuration file or directory (shorthand).")
	outFlag := flagSet.String("out", "out", "Directory the rewritten graphs and artifacts are written to.")
	formatFlag := flagSet.String("format", "", "Output format: 'hcl' or 'json'. Defaults to the input's format.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 4, "Number of graphs processed concurrently.")
	traceFlag := flagSet.Bool("trace", false, "Print pipeline trace spans to the output.")
	dumpDirFlag := flagSet.String("dump-dir", "", "Directory for per-phase graph dumps (.dot and .yaml).")
	flagSet.Var(&dumpPhases, "dump-phases", "Comma-separated phases to dump. Empty dumps every phase.")
	dumpSocketIOFlag := flagSet.String("dump-socketio", "", "Socket.IO server URL that receives a snapshot event per phase.")
	artifactDBFlag := flagSet.String("artifact-db", "", "BadgerDB directory artifacts are persisted to.")
	disableFlag := flagSet.Bool("disable", false, "Disable the pass; graphs are written back unchanged.")
	flagSet.Var(&disableOps, "disable-ops", "Comma-separated ops that are never clustered.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	inputs := flagSet.Args()
	if len(inputs) == 0 {
		slog.Debug("No graph path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(app.Config{
		ConfigPaths:     configPaths,
		Inputs:          inputs,
		OutDir:          *outFlag,
		Format:          strings.ToLower(*formatFlag),
		LogFormat:       strings.ToLower(*logFormatFlag),
		LogLevel:        strings.ToLower(*logLevelFlag),
		HealthcheckPort: *healthPortFlag,
		Workers:         *workersFlag,
		Trace:           *traceFlag,
		DumpDir:         *dumpDirFlag,
		DumpPhases:      dumpPhases,
		DumpSocketIO:    *dumpSocketIOFlag,
		ArtifactDB:      *artifactDBFlag,
		Disable:         *disableFlag,
		DisableOps:      disableOps,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "inputs", len(config.Inputs))
	return config, false, nil
}
