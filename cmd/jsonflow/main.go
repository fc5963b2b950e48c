// Command jsonflow reformats JSON through the streaming serializer and
// inspects ISO-8601 date text.
//
//	jsonflow fmt [--driver lexer|gojson] [--chunk N] [--flush N] [file]
//	jsonflow date 2024-01-02T03:04:05.25+09:00 ...
//	jsonflow drivers
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"reflect"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/reoring/jsonflow"
	"github.com/reoring/jsonflow/i18n"
	_ "github.com/reoring/jsonflow/source/gojson"
	"github.com/reoring/jsonflow/textcodec"
	"github.com/reoring/jsonflow/typeinfo"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if iss, ok := jsonflow.AsIssues(err); ok {
			err = iss.Localized(i18n.New(os.Getenv("JSONFLOW_LANG")))
		}
		fmt.Fprintf(os.Stderr, "jsonflow: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "jsonflow CLI\n\nUsage:\n  jsonflow fmt [flags] [file]\n  jsonflow date TEXT...\n  jsonflow drivers\n\nNotes:\n  - fmt reads stdin when no file is given.\n  - fmt --help lists the serializer flags.\n  - JSONFLOW_LANG=ja localizes error messages.")
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) < 1 {
		usage()
		return fmt.Errorf("missing subcommand")
	}
	switch args[0] {
	case "fmt":
		return fmtCmd(args[1:], stdin, stdout)
	case "date":
		return dateCmd(args[1:], stdout)
	case "drivers":
		for _, name := range jsonflow.Drivers() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	case "-h", "--help", "help":
		usage()
		return nil
	}
	usage()
	return fmt.Errorf("unknown subcommand %q", args[0])
}

func fmtCmd(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := pflag.NewFlagSet("fmt", pflag.ContinueOnError)
	var (
		configPath string
		driverName string
		escaping   string
		references string
		chunk      int
		flush      int
		maxDepth   int
		verbose    bool
	)
	fs.StringVar(&configPath, "config", "", "YAML file with serializer options")
	fs.StringVar(&driverName, "driver", jsonflow.DefaultDriver, "token source driver")
	fs.StringVar(&escaping, "escaping", "relaxed", "escaping policy: relaxed, web_safe or ascii")
	fs.StringVar(&references, "references", "none", "reference handling: none, preserve or ignore_cycles")
	fs.IntVar(&chunk, "chunk", jsonflow.DefaultReadBufferSize, "read chunk size in bytes")
	fs.IntVar(&flush, "flush", jsonflow.DefaultFlushThreshold, "flush threshold in bytes")
	fs.IntVar(&maxDepth, "max-depth", jsonflow.DefaultMaxDepth, "maximum nesting depth")
	fs.BoolVarP(&verbose, "verbose", "v", false, "log suspensions to stderr")
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	var opts jsonflow.Options
	if configPath != "" {
		var err error
		if opts, err = jsonflow.LoadOptionsFile(configPath); err != nil {
			return err
		}
	}
	// Flags override the config file only when given.
	if fs.Changed("escaping") || configPath == "" {
		if err := opts.Escaping.UnmarshalText([]byte(escaping)); err != nil {
			return err
		}
	}
	if fs.Changed("references") || configPath == "" {
		if err := opts.References.UnmarshalText([]byte(references)); err != nil {
			return err
		}
	}
	if fs.Changed("chunk") || opts.ReadBufferSize == 0 {
		opts.ReadBufferSize = chunk
	}
	if fs.Changed("flush") || opts.FlushThreshold == 0 {
		opts.FlushThreshold = flush
	}
	if fs.Changed("max-depth") || opts.MaxDepth == 0 {
		opts.MaxDepth = maxDepth
	}
	if verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()
		opts.Logger = log
	}

	drv, ok := jsonflow.LookupDriver(driverName)
	if !ok {
		return fmt.Errorf("unknown driver %q (have %v)", driverName, jsonflow.Drivers())
	}

	in := stdin
	if rest := fs.Args(); len(rest) > 0 {
		f, err := os.Open(rest[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := jsonflow.New(typeinfo.NewRegistry(), opts)
	var (
		v   any
		err error
	)
	if drv.Name() == jsonflow.DefaultDriver {
		v, err = s.Decode(ctx, in, nil)
	} else {
		v, err = s.DecodeSource(drv.NewReader(in), reflect.TypeOf((*any)(nil)).Elem())
	}
	if err != nil {
		return err
	}
	if err := s.Encode(ctx, stdout, v); err != nil {
		return err
	}
	_, err = io.WriteString(stdout, "\n")
	return err
}

func dateCmd(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("date: missing input")
	}
	for _, a := range args {
		dt, err := textcodec.ParseDateTime([]byte(a))
		if err != nil {
			return fmt.Errorf("date %q: %w", a, err)
		}
		text, err := dt.AppendText(nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s\tkind=%s ticks=%d unix=%d\n", text, dt.Kind, dt.Ticks(), dt.Time().Unix())
	}
	return nil
}
