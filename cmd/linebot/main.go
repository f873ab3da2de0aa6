package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/gwillem/linebot/pkg/mission"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"linebot.json" description:"Mission configuration file"`
	Verbose bool   `short:"v" long:"verbose" description:"Log every control tick"`
	LogFile string `long:"log-file" default:"linebot.log" description:"Log file, written while a TUI owns the terminal"`

	Setup   SetupCommand   `command:"setup" description:"Find and calibrate the cage servo, pick a speed profile"`
	Run     RunCommand     `command:"run" description:"Run the mission"`
	Resolve ResolveCommand `command:"resolve" description:"Classify six slot intensities and print the grab plan"`
	Scans   ScansCommand   `command:"scans" description:"List recent scans from the history"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "linebot - line-following and slot-collecting robot controller"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// newLogger writes structured logs to the log file, at debug level when
// verbose.
func newLogger() (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{opts.LogFile}
	cfg.ErrorOutputPaths = []string{opts.LogFile}
	return cfg.Build()
}

// loadConfig reads the config file, falling back to the defaults when it
// does not exist yet.
func loadConfig() (*mission.Config, error) {
	cfg, err := mission.LoadConfigFrom(opts.Config)
	if errors.Is(err, os.ErrNotExist) {
		def := mission.DefaultConfig()
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", opts.Config, err)
	}
	return cfg, nil
}
