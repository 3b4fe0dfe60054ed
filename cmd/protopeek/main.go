// Copyright 2023-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command protopeek decodes protobuf wire-format data without a schema
// and prints it as a tree.
//
// Input is given as an argument (hex or Base64), read from a file with
// --file (raw bytes, gzip and zstd are decompressed), or read from
// stdin. For example:
//
//	protopeek decode 08960112026869
//	protopeek search --file dump.bin session
//	protopeek export --name payload.json 2 08960112026869
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bufbuild/protopeek"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := newCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "protopeek: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type session struct {
	inspector *protopeek.Inspector
	close     func() error
}

func newCommand(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name:      "protopeek",
		Usage:     "inspect protobuf wire-format data without a schema",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file",
				Sources: cli.EnvVars("PROTOPEEK_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level: debug, info, warn or error",
				Sources: cli.EnvVars("PROTOPEEK_LOG_LEVEL"),
			},
			&cli.IntFlag{
				Name:  "max-depth",
				Usage: "how deeply to decode nested messages (0 for the default)",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "store backend for export, save and open: none, file, memcache or redis",
			},
			&cli.StringFlag{
				Name:  "store-path",
				Usage: "directory of the file store",
			},
			&cli.StringFlag{
				Name:  "store-address",
				Usage: "host:port of the memcache or redis server",
			},
			&cli.StringFlag{
				Name:  "key-prefix",
				Usage: "prefix of every store key",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "decode",
				Usage:     "decode input and print its field tree",
				ArgsUsage: "[INPUT]",
				Flags: append(inputFlags(),
					&cli.BoolFlag{Name: "json", Usage: "print the tree as JSON"},
					&cli.BoolFlag{Name: "hex", Usage: "print the decoded input bytes as hex instead"},
				),
				Action: a.withSession(false, a.decode),
			},
			{
				Name:      "search",
				Usage:     "print the parts of the field tree that match a query",
				ArgsUsage: "QUERY [INPUT]",
				Flags:     inputFlags(),
				Action:    a.withSession(false, a.search),
			},
			{
				Name:      "export",
				Usage:     "save one node to the store",
				ArgsUsage: "PATH [INPUT]",
				Flags: append(inputFlags(),
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"o"},
						Usage:   "file name; the extension picks the format: .json, .txt (hex) or raw bytes",
					},
				),
				Action: a.withSession(true, a.export),
			},
			{
				Name:      "save",
				Usage:     "save the input as a snapshot and print its key",
				ArgsUsage: "[INPUT]",
				Flags:     inputFlags(),
				Action:    a.withSession(true, a.save),
			},
			{
				Name:      "open",
				Usage:     "load a snapshot and print its field tree",
				ArgsUsage: "KEY",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print the tree as JSON"},
				},
				Action: a.withSession(true, a.open),
			},
		},
	}
}

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "read raw input bytes from a file",
		},
		&cli.BoolFlag{
			Name:  "example",
			Usage: "use the built-in example input",
		},
	}
}

func (a *app) withSession(needStore bool, fn func(context.Context, *cli.Command, *session) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) (err error) {
		s, err := a.newSession(cmd, needStore)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, s.close())
		}()
		return fn(ctx, cmd, s)
	}
}

func (a *app) newSession(cmd *cli.Command, needStore bool) (*session, error) {
	cfg := defaultConfig()
	if path := cmd.String("config"); path != "" {
		var err error
		if cfg, err = loadConfig(path); err != nil {
			return nil, err
		}
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return nil, err
	}
	logger := newLogger(a.stderr, cfg.LogLevel)

	inspectorConfig := &protopeek.InspectorConfig{
		MaxDepth: cfg.MaxDepth,
		Logger:   &logger,
	}
	closeStore := func() error { return nil }
	if needStore {
		store, closeFn, err := openStore(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		if store == nil {
			return nil, fmt.Errorf("command %q needs a store; set --store or [store] backend", cmd.Name)
		}
		inspectorConfig.Store = store
		inspectorConfig.KeyPrefix = cfg.Store.KeyPrefix
		closeStore = closeFn
		logger.Debug().Str("backend", cfg.Store.Backend).Msg("store opened")
	}
	inspector, err := protopeek.NewInspector(inspectorConfig)
	if err != nil {
		return nil, errors.Join(err, closeStore())
	}
	return &session{inspector: inspector, close: closeStore}, nil
}

// applyFlags overrides config values with the flags that were set.
func applyFlags(cmd *cli.Command, cfg *config) error {
	if cmd.IsSet("log-level") {
		level, err := zerolog.ParseLevel(strings.TrimSpace(cmd.String("log-level")))
		if err != nil {
			return fmt.Errorf("parse --log-level: %w", err)
		}
		cfg.LogLevel = level
	}
	if cmd.IsSet("max-depth") {
		maxDepth := int(cmd.Int("max-depth"))
		if maxDepth < 0 {
			return fmt.Errorf("--max-depth (%d) cannot be negative", maxDepth)
		}
		cfg.MaxDepth = maxDepth
	}
	if cmd.IsSet("store") {
		cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cmd.String("store")))
	}
	if cmd.IsSet("store-path") {
		cfg.Store.Path = cmd.String("store-path")
	}
	if cmd.IsSet("store-address") {
		cfg.Store.Address = cmd.String("store-address")
	}
	if cmd.IsSet("key-prefix") {
		cfg.Store.KeyPrefix = cmd.String("key-prefix")
	}
	return nil
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "protopeek").Logger()
}

// loadInput loads the input named by the command: --example, --file,
// the given argument, or stdin if the argument is empty or "-". Text on
// stdin that is neither hex nor Base64 is loaded as raw bytes.
func (a *app) loadInput(cmd *cli.Command, s *session, arg string) error {
	switch {
	case cmd.Bool("example"):
		return s.inspector.LoadText(protopeek.ExampleInput)
	case cmd.String("file") != "":
		data, err := os.ReadFile(cmd.String("file"))
		if err != nil {
			return err
		}
		return s.inspector.LoadBytes(data)
	case arg != "" && arg != "-":
		return s.inspector.LoadText(arg)
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	input, err := protopeek.DecodeInputText(string(data))
	if errors.Is(err, protopeek.ErrUnrecognizedInput) {
		input = protopeek.DecodeInputBytes(data)
	} else if err != nil {
		return err
	}
	return s.inspector.Load(input)
}

func (a *app) decode(_ context.Context, cmd *cli.Command, s *session) error {
	if err := checkArgs(cmd, 0, 1); err != nil {
		return err
	}
	if err := a.loadInput(cmd, s, cmd.Args().Get(0)); err != nil {
		return err
	}
	if cmd.Bool("hex") {
		_, err := fmt.Fprintln(a.stdout, protopeek.FormatHex(s.inspector.Source()))
		return err
	}
	return a.printTree(cmd.Bool("json"), s, s.inspector.Roots())
}

func (a *app) search(_ context.Context, cmd *cli.Command, s *session) error {
	if err := checkArgs(cmd, 1, 2); err != nil {
		return err
	}
	if err := a.loadInput(cmd, s, cmd.Args().Get(1)); err != nil {
		return err
	}
	filtered, count := s.inspector.Search(cmd.Args().Get(0))
	if err := writeTree(a.stdout, filtered, true); err != nil {
		return err
	}
	_, err := fmt.Fprintf(a.stdout, "%d matches\n", count)
	return err
}

func (a *app) export(ctx context.Context, cmd *cli.Command, s *session) error {
	if err := checkArgs(cmd, 1, 2); err != nil {
		return err
	}
	if err := a.loadInput(cmd, s, cmd.Args().Get(1)); err != nil {
		return err
	}
	key, err := s.inspector.Export(ctx, cmd.Args().Get(0), cmd.String("name"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, key)
	return err
}

func (a *app) save(ctx context.Context, cmd *cli.Command, s *session) error {
	if err := checkArgs(cmd, 0, 1); err != nil {
		return err
	}
	if err := a.loadInput(cmd, s, cmd.Args().Get(0)); err != nil {
		return err
	}
	key, err := s.inspector.SaveSnapshot(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, key)
	return err
}

func (a *app) open(ctx context.Context, cmd *cli.Command, s *session) error {
	if err := checkArgs(cmd, 1, 1); err != nil {
		return err
	}
	captured, err := s.inspector.OpenSnapshot(ctx, cmd.Args().Get(0))
	if err != nil {
		return err
	}
	if !cmd.Bool("json") {
		fmt.Fprintf(a.stderr, "snapshot captured %s\n", captured.Format(time.RFC3339))
	}
	return a.printTree(cmd.Bool("json"), s, s.inspector.Roots())
}

func checkArgs(cmd *cli.Command, minArgs, maxArgs int) error {
	n := cmd.Args().Len()
	if n < minArgs || n > maxArgs {
		return fmt.Errorf("%s: expecting %s, got %d argument(s)", cmd.Name, cmd.ArgsUsage, n)
	}
	return nil
}

func (a *app) printTree(asJSON bool, s *session, roots []*protopeek.DisplayNode) error {
	if asJSON {
		dtos := make([]*protopeek.NodeDTO, len(roots))
		for i, root := range roots {
			dtos[i] = root.DTO()
		}
		encoder := json.NewEncoder(a.stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(dtos)
	}
	if err := writeTree(a.stdout, roots, false); err != nil {
		return err
	}
	_, err := fmt.Fprintln(a.stderr, s.inspector.Status())
	return err
}

// writeTree prints one node per line, indented by depth. With
// highlights, matching nodes are marked with a "*".
func writeTree(w io.Writer, nodes []*protopeek.DisplayNode, highlights bool) error {
	var sb strings.Builder
	appendTree(&sb, nodes, 0, highlights)
	_, err := io.WriteString(w, sb.String())
	return err
}

func appendTree(sb *strings.Builder, nodes []*protopeek.DisplayNode, depth int, highlights bool) {
	for _, node := range nodes {
		if highlights {
			if node.Highlighted {
				sb.WriteString("* ")
			} else {
				sb.WriteString("  ")
			}
		}
		sb.WriteString(strings.Repeat("  ", depth))
		if node.Path != "" {
			sb.WriteString(node.Path)
			sb.WriteString("  ")
		}
		sb.WriteString(node.Label)
		sb.WriteByte('\n')
		appendTree(sb, node.Children, depth+1, highlights)
	}
}
