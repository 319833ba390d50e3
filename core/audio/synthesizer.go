package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"GreetFM/logger"

	"github.com/fsnotify/fsnotify"
)

// Synthesizer turns command text into audio frames, emitting each frame
// as it becomes available. An emit error aborts synthesis.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, emit func(frame []byte) error) error
}

// ProcessSynthesizer runs an external TTS command that writes numbered
// frame files into a scratch directory; frames are picked up with an
// fsnotify watch so streaming starts before synthesis finishes. A frame
// counts as complete once the next frame appears (or the process exits),
// which keeps the watcher from reading half-written files.
type ProcessSynthesizer struct {
	path   string
	format string
}

// NewProcessSynthesizer creates a synthesizer around the given command.
func NewProcessSynthesizer(path, format string) *ProcessSynthesizer {
	return &ProcessSynthesizer{path: path, format: format}
}

func (s *ProcessSynthesizer) Synthesize(ctx context.Context, text string, emit func(frame []byte) error) error {
	dir, err := os.MkdirTemp("", "greetfm-synth-")
	if err != nil {
		return fmt.Errorf("synth temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("synth watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("synth watcher add: %w", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(cctx, s.path, "-text", text, "-out", dir, "-format", s.format)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start synthesizer %s: %w", s.path, err)
	}

	suffix := "." + s.format
	seen := make(map[string]bool)
	var pending []string
	var emitErr error
	done := make(chan struct{})

	emitFile := func(name string) error {
		data, err := os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read frame %s: %w", name, err)
		}
		return emit(data)
	}

	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Create != fsnotify.Create || !strings.HasSuffix(event.Name, suffix) {
					continue
				}
				if seen[event.Name] {
					continue
				}
				seen[event.Name] = true
				pending = append(pending, event.Name)
				// All but the newest frame are complete.
				for len(pending) > 1 {
					if err := emitFile(pending[0]); err != nil {
						emitErr = err
						cancel() // kills the process
						return
					}
					pending = pending[1:]
				}
			case err := <-watcher.Errors:
				logger.Warn("synth watcher error", logger.ErrorField(err))
			case <-cctx.Done():
				return
			}
		}
	}()

	waitErr := cmd.Wait()
	watcher.Close()
	<-done

	if emitErr != nil {
		return emitErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if waitErr != nil {
		return fmt.Errorf("synthesizer %s: %w", s.path, waitErr)
	}

	// Frames the watcher had not flushed, plus any it never saw.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scan synth output: %w", err)
	}
	var missed []string
	for _, e := range entries {
		name := filepath.Join(dir, e.Name())
		if strings.HasSuffix(name, suffix) && !seen[name] {
			missed = append(missed, name)
		}
	}
	sort.Strings(missed)
	for _, name := range append(pending, missed...) {
		if err := emitFile(name); err != nil {
			return err
		}
	}
	return nil
}
