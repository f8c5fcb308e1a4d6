package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/ojasjagtap/prompt-ide/pkg/errors"
	"github.com/ojasjagtap/prompt-ide/pkg/logging"
	"github.com/ojasjagtap/prompt-ide/pkg/worker"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "read the job configuration from a file instead of stdin")
	logLevel := flag.String("log-level", "info", "log verbosity: debug, info, warn, error")
	flag.Parse()

	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(strings.ToUpper(*logLevel)),
		Outputs:  []logging.Output{logging.NewConsoleOutput(true)},
	}))

	emitter := worker.NewEmitter(os.Stdout)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		emitter.Error(err.Error(), errors.Chain(err))
		return 1
	}

	if err := worker.NewOrchestrator(cfg, emitter).Run(context.Background()); err != nil {
		return 1
	}
	return 0
}

func loadConfig(path string) (*worker.Config, error) {
	if path == "" {
		return worker.LoadConfig(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to open configuration file")
	}
	defer f.Close()
	return worker.LoadConfig(f)
}
