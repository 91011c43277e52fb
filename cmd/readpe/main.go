// Package main provides the readpe CLI tool.
package main

import (
	"io"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"golang.org/x/term"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/ZacharyZcR/readpe/internal/cli"
	"github.com/ZacharyZcR/readpe/internal/config"
	"github.com/ZacharyZcR/readpe/internal/flags"
	"github.com/ZacharyZcR/readpe/internal/pe"
)

var (
	app = kingpin.New("readpe", "Print the DOS, COFF and section headers of PE files.")

	configPath = app.Flag("config", "TOML settings file.").PlaceHolder("FILE").String()
	flagsPath  = app.Flag("flags", "YAML flag-name table replacing the built-in one.").PlaceHolder("FILE").String()
	format     = app.Flag("format", "Output format.").Enum(config.Formats...)
	noColor    = app.Flag("no-color", "Never color titles.").Bool()
	serial     = app.Flag("serial", "Validate header fields on one goroutine.").Bool()
	verbose    = app.Flag("verbose", "Trace decoding stages on stderr.").Short('v').Bool()
	dump       = app.Flag("dump", "Dump resolved header offsets on stderr.").Bool()
	listFlags  = app.Flag("list-flags", "Print the flag-name table and exit.").Bool()

	files = app.Arg("file", "PE files to decode.").Strings()
)

func main() {
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := run(); err != nil {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintf(os.Stderr, "\nerror: %v\n\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg, err := loadFlags(cfg.FlagsFile)
	if err != nil {
		return err
	}

	if *listFlags {
		return cli.PrintRegistry(os.Stdout, reg)
	}

	if len(*files) == 0 {
		app.Usage(os.Args[1:])
		return errors.New("no input file")
	}

	logger := log.New(io.Discard, "", 0)
	if cfg.Verbose {
		logger = log.New(os.Stderr, "readpe: ", 0)
	}
	opts := pe.Options{Logger: logger, SerialValidate: cfg.SerialValidate}

	reporter := cli.NewReporter(os.Stdout, reg)
	if err := reporter.SetFormat(cfg.Format); err != nil {
		return err
	}
	reporter.SetLabelWidth(cfg.LabelWidth)
	reporter.SetFlagIndent(cfg.FlagIndent)
	reporter.SetColor(!cfg.NoColor && term.IsTerminal(int(os.Stdout.Fd())))
	defer func() { _ = reporter.Close() }()

	for _, path := range *files {
		if err := decodeFile(reporter, path, opts, len(*files) > 1); err != nil {
			return err
		}
	}
	return nil
}

func decodeFile(reporter *cli.Reporter, path string, opts pe.Options, banner bool) error {
	img, err := pe.Load(path)
	if err != nil {
		return err
	}
	opts.Logger.Printf("%s: %s, %d bytes", path, img.Kind(), img.Size())

	if banner {
		if err := reporter.PrintFile(img); err != nil {
			return err
		}
	}

	headers, err := reporter.Report(img, opts)
	if *dump && headers != nil {
		spew.Fdump(os.Stderr, headers.Offsets())
	}
	if err != nil {
		return errors.Wrap(err, path)
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	if *format != "" {
		cfg.Format = *format
	}
	if *flagsPath != "" {
		cfg.FlagsFile = *flagsPath
	}
	cfg.NoColor = cfg.NoColor || *noColor
	cfg.SerialValidate = cfg.SerialValidate || *serial
	cfg.Verbose = cfg.Verbose || *verbose

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFlags(path string) (*flags.Registry, error) {
	if path == "" {
		return flags.Default(), nil
	}
	return flags.LoadFile(path)
}
