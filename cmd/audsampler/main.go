// SPDX-License-Identifier: EPL-2.0

// Command audsampler plays a sample across the keyboard.
//
// Notes come from text commands on stdin and, with -midi, from a raw MIDI
// device such as /dev/midi1. With -render it plays the stdin score offline
// into a WAV file instead of the sound card.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/audsampler"
	"github.com/ik5/audsampler/device"
	"github.com/ik5/audsampler/engine"
	"github.com/ik5/audsampler/router"
)

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

type flags struct {
	debug       bool
	null        bool
	midi        string
	midiChannel int
	render      string
	length      time.Duration
	fx          string
	format      string
}

func parseFlags(args []string) (audsampler.Config, flags, error) {
	cfg := audsampler.DefaultConfig()
	var f flags

	fs := flag.NewFlagSet("audsampler", flag.ContinueOnError)
	fs.StringVar(&cfg.SamplePath, "sample", "", "sample file (wav, aiff, mp3, ogg); default is a built-in tone")
	fs.IntVar(&cfg.Engine.SampleRate, "rate", cfg.Engine.SampleRate, "output sample rate in Hz")
	fs.IntVar(&cfg.Engine.Channels, "channels", cfg.Engine.Channels, "output channels (1 or 2)")
	fs.IntVar(&cfg.Engine.BlockSize, "block", cfg.Engine.BlockSize, "frames per audio block")
	fs.StringVar(&f.format, "format", cfg.Engine.Format.String(), "device sample format: f32le or s16le")
	fs.IntVar(&cfg.BaseNote, "base", cfg.BaseNote, "MIDI note the sample plays unshifted")
	fs.DurationVar(&cfg.ReleaseDuration, "release", cfg.ReleaseDuration, "note-off fade length")
	fs.StringVar(&f.fx, "fx", "", `comma separated effects; "board" adds the stock board`)
	fs.BoolVar(&cfg.VelocitySensitive, "velocity", false, "scale note gain by velocity")
	keep := fs.Bool("keep-voices", false, "let sounding notes ring on sample change")
	fs.IntVar(&cfg.QueueDepth, "queue", cfg.QueueDepth, "pending event limit")
	fs.StringVar(&f.midi, "midi", "", "raw MIDI device or dump to read notes from")
	fs.IntVar(&f.midiChannel, "midi-channel", -1, "MIDI channel 0-15 to listen on, -1 for all")
	fs.StringVar(&f.render, "render", "", "render the stdin score to this WAV file and exit")
	fs.DurationVar(&f.length, "length", 0, "render length; default is the last cue plus two seconds")
	fs.BoolVar(&f.null, "null", false, "discard audio instead of opening the sound card")
	fs.BoolVar(&f.debug, "debug", false, "enable debug logging (adds source location)")

	if err := fs.Parse(args); err != nil {
		return cfg, f, err
	}

	format, err := engine.ParseFormat(f.format)
	if err != nil {
		return cfg, f, err
	}
	cfg.Engine.Format = format
	cfg.StopOnSampleChange = !*keep
	cfg.Board, cfg.Effects = effectList(f.fx)

	return cfg, f, cfg.Validate()
}

func effectList(s string) (board bool, names []string) {
	for name := range strings.SplitSeq(s, ",") {
		switch name = strings.TrimSpace(name); name {
		case "", "none":
		case "board":
			board = true
		default:
			names = append(names, name)
		}
	}
	return board, names
}

func main() {
	cfg, f, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	initLogger(f.debug)
	if err != nil {
		logger.Error("bad arguments", slog.Any("error", err))
		os.Exit(2)
	}

	if f.render != "" {
		err = render(cfg, f)
	} else {
		err = play(cfg, f)
	}
	if err != nil {
		logger.Error("audsampler failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func play(cfg audsampler.Config, f flags) error {
	driver := device.Default()
	if f.null {
		driver = device.Null{}
	}

	s, err := audsampler.New(cfg, driver, audsampler.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(ctx) })
	if f.midi != "" {
		g.Go(func() error { return readMIDI(ctx, s, f.midi, f.midiChannel) })
	}

	// A blocked stdin read cannot be interrupted, so this reader is left
	// out of the group and dies with the process.
	go readCommands(s, os.Stdin, os.Stdout)

	err = g.Wait()

	st := s.Stats()
	logger.Info("audsampler stopped",
		slog.Uint64("blocks", st.Engine.Blocks),
		slog.Uint64("overloads", st.Engine.Overloads),
		slog.Uint64("stale_ticks", st.Pool.StaleTicks),
		slog.Uint64("events", st.Router.Handled),
		slog.Uint64("failed_events", st.Router.Failed),
	)

	return err
}

func readCommands(s *audsampler.Sampler, in io.Reader, out io.Writer) {
	err := scanLines(in, func(line string) {
		cmd, err := router.ParseCommand(line)
		if err != nil {
			logger.Warn("bad command", slog.String("line", line), slog.Any("error", err))
			return
		}
		reply, err := s.Exec(cmd)
		if err != nil {
			logger.Warn("command failed", slog.String("line", line), slog.Any("error", err))
			return
		}
		if reply != "" {
			fmt.Fprintln(out, reply)
		}
	})
	if err != nil {
		logger.Error("reading commands", slog.Any("error", err))
	}
}

func readMIDI(ctx context.Context, s *audsampler.Sampler, path string, channel int) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open midi input: %w", err)
	}

	// closing the file is the only way to unblock the read
	go func() {
		<-ctx.Done()
		_ = file.Close()
	}()

	logger.Info("listening for MIDI", slog.String("input", path), slog.Int("channel", channel))

	r := router.NewMIDIReader(file, channel)
	for {
		ev, err := r.ReadEvent()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read midi: %w", err)
		}
		if err := s.Submit(ev); err != nil {
			logger.Warn("midi event dropped", slog.String("event", ev.String()), slog.Any("error", err))
		}
	}
}
