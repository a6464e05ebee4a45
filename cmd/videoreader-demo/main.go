// Command videoreader-demo opens a single source through the videoreader
// facade and pulls frames until EOF, printing one line per frame. Useful
// as a smoke test for any of the three backends from a terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/minimg/videoreader"
	"github.com/minimg/videoreader/types"
	"github.com/minimg/videoreader/writer"
)

func main() {
	app := &cli.App{
		Name:      "videoreader-demo",
		Usage:     "pull frames from a source through the videoreader facade",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "param",
				Usage: "backend configuration pair key=value, repeatable",
			},
			&cli.StringSliceFlag{
				Name:  "extra",
				Usage: "per-frame extra metadata name, repeatable",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "log-level: trace|debug|info|warning|error",
			},
			&cli.BoolFlag{
				Name:  "no-decode",
				Usage: "skip pixel conversion, exercise the cheap-skip path",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "also re-encode every frame to this URL",
			},
			&cli.StringFlag{
				Name:  "bitrate",
				Value: "4M",
				Usage: "output bitrate (humanize size, e.g. 4M, 800K)",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("exactly one <url> argument is required", 1)
	}
	rawURL := c.Args().Get(0)

	var level logger.Level
	if err := level.Set(c.String("log-level")); err != nil {
		return cli.Exit(fmt.Sprintf("invalid log-level: %v", err), 1)
	}
	l := logrus.Default().WithLevel(level)
	ctx := logger.CtxWithLogger(context.Background(), l)
	defer belt.Flush(ctx)

	colorize := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	pairs := make([]string, 0, len(c.StringSlice("param"))*2)
	for _, kv := range c.StringSlice("param") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return cli.Exit(fmt.Sprintf("malformed --param %q, want key=value", kv), 1)
		}
		pairs = append(pairs, parts[0], parts[1])
	}

	reader, err := videoreader.Create(ctx, rawURL, pairs, c.StringSlice("extra"), nil, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("opening %q: %w", rawURL, err)
	}
	defer reader.Close(ctx)

	fmt.Printf("opened %q: size=%d seekable=%v\n", rawURL, reader.Size(), reader.IsSeekable())

	var out *writer.Writer
	if outURL := c.String("output"); outURL != "" {
		bitrate, err := humanize.ParseBytes(c.String("bitrate"))
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid --bitrate: %v", err), 1)
		}
		first, err := reader.NextFrame(ctx, true)
		if err != nil {
			return fmt.Errorf("reading first frame to size the writer: %w", err)
		}
		if first == nil {
			fmt.Println("source produced no frames, nothing to write")
			return nil
		}
		out, err = writer.Open(ctx, outURL, first.Image.Width, first.Image.Height,
			[]types.DictionaryItem{{Key: "br", Value: fmt.Sprintf("%d", bitrate)}}, false)
		if err != nil {
			return fmt.Errorf("opening output %q: %w", outURL, err)
		}
		defer out.Close(ctx)
		if _, err := out.Push(ctx, first.Image, first.TimestampSeconds); err != nil {
			return fmt.Errorf("writing first frame: %w", err)
		}
		first.Close()
	}

	decode := !c.Bool("no-decode")
	start := time.Now()
	count := 0
	for {
		f, err := reader.NextFrame(ctx, decode)
		if err != nil {
			return fmt.Errorf("reading frame %d: %w", count, err)
		}
		if f == nil {
			break
		}
		line := fmt.Sprintf("frame #%d: %dx%d ts=%.3fs extras=%dB",
			f.Number, f.Image.Width, f.Image.Height, f.TimestampSeconds, len(f.Extras))
		if colorize {
			line = "\x1b[32m" + line + "\x1b[0m"
		}
		fmt.Println(line)
		if out != nil {
			if _, err := out.Push(ctx, f.Image, f.TimestampSeconds); err != nil {
				f.Close()
				return fmt.Errorf("writing frame %d: %w", count, err)
			}
		}
		f.Close()
		count++
	}
	fmt.Printf("read %d frame(s) in %s\n", count, time.Since(start))
	return nil
}
