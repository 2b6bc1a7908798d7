// SPDX-License-Identifier: EPL-2.0

package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ik5/audsampler"
	"github.com/ik5/audsampler/device"
	"github.com/ik5/audsampler/router"
)

const renderTail = 2 * time.Second

func scanLines(r io.Reader, fn func(string)) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fn(sc.Text())
	}
	return sc.Err()
}

// parseCue parses a score line: "@<offset> <command>", for example
// "@1.5s off 60". Lines without an offset run at the previous one.
func parseCue(line string, prev time.Duration) (time.Duration, router.Command, error) {
	line = strings.TrimSpace(line)
	at := prev

	if rest, ok := strings.CutPrefix(line, "@"); ok {
		offset, cmd, _ := strings.Cut(rest, " ")
		d, err := time.ParseDuration(offset)
		if err != nil || d < 0 {
			return 0, router.Command{}, fmt.Errorf("%w: bad offset %q", router.ErrProtocol, offset)
		}
		at, line = d, cmd
	}

	cmd, err := router.ParseCommand(line)
	return at, cmd, err
}

func readScore(s *audsampler.Sampler, r io.Reader) ([]audsampler.Cue, time.Duration, error) {
	var (
		score []audsampler.Cue
		at    time.Duration
		last  time.Duration
		n     int
		bad   error
	)

	err := scanLines(r, func(line string) {
		n++
		if bad != nil {
			return
		}

		var cmd router.Command
		var err error
		at, cmd, err = parseCue(line, at)
		switch {
		case err != nil:
			bad = fmt.Errorf("line %d: %w", n, err)
		case cmd.Effect != nil:
			// effect edits shape the board before rendering starts
			if _, err := s.Exec(cmd); err != nil {
				bad = fmt.Errorf("line %d: %w", n, err)
			}
		default:
			for _, ev := range cmd.Events() {
				score = append(score, audsampler.Cue{At: at, Event: ev})
				last = max(last, at)
			}
		}
	})
	if err != nil {
		return nil, 0, err
	}

	return score, last, bad
}

func render(cfg audsampler.Config, f flags) error {
	s, err := audsampler.New(cfg, device.Null{}, audsampler.WithLogger(logger))
	if err != nil {
		return err
	}

	score, last, err := readScore(s, os.Stdin)
	if err != nil {
		return err
	}

	length := f.length
	if length <= 0 {
		length = last + renderTail
	}

	out, err := os.Create(f.render)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	w := bufio.NewWriter(out)
	if err := s.Render(w, score, length); err != nil {
		_ = out.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	logger.Info("rendered",
		slog.String("output", f.render),
		slog.Int("cues", len(score)),
		slog.Duration("length", length),
		slog.Any("effects", s.Effects().Names()),
	)

	return nil
}
