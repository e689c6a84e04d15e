// Package ripgrep runs rg with --json output and decodes its match records.
package ripgrep

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	symerrors "symfind/internal/errors"
	"symfind/internal/logging"
)

// DefaultChunkLines is how many output lines one decode task handles.
const DefaultChunkLines = 512

// Filter reports whether a decoded match should be kept.
type Filter func(Match) bool

// Runner spawns rg and turns its output into matches.
type Runner struct {
	bin        string
	pool       *ants.Pool
	chunkLines int
	logger     *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithPool decodes output chunks on pool instead of the calling goroutine.
func WithPool(pool *ants.Pool) Option {
	return func(r *Runner) { r.pool = pool }
}

// WithChunkLines sets the number of lines per decode task.
func WithChunkLines(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.chunkLines = n
		}
	}
}

// WithLogger sets the logger used for stderr forwarding.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner creates a Runner for the rg executable at bin.
func NewRunner(bin string, opts ...Option) *Runner {
	if bin == "" {
		bin = "rg"
	}
	r := &Runner{
		bin:        bin,
		chunkLines: DefaultChunkLines,
		logger:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bin returns the executable the runner spawns.
func (r *Runner) Bin() string {
	return r.bin
}

// Available reports whether the rg executable can be found.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.bin)
	return err == nil
}

// Run executes rg with args in dir (the current directory when empty) and
// decodes its output. Matches rejected by filter are dropped. The order of
// the returned matches is unspecified.
//
// Exit code 1 (no matches) is not an error. Exit code 2 without any decoded
// match is reported as ErrInvalidPattern with rg's stderr.
func (r *Runner) Run(ctx context.Context, args []string, dir string, filter Filter) ([]Match, error) {
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", symerrors.ErrInvalidWorkingDirectory, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", symerrors.ErrInvalidWorkingDirectory, dir)
		}
	}

	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("running search", "command", CommandLine(r.bin, args), "dir", dir)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", symerrors.ErrSpawnFailed, r.bin, err)
	}
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if stderr.Len() > 0 {
		r.logger.Debug("search stderr", "command", CommandLine(r.bin, args), "stderr", strings.TrimSpace(stderr.String()))
	}

	matches := r.decode(stdout.Bytes(), filter)

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return matches, fmt.Errorf("ripgrep error: %w", waitErr)
		}
		switch exitErr.ExitCode() {
		case 1:
			// No matches.
			return matches, nil
		case 2:
			if len(matches) > 0 {
				// Partial failure, e.g. an unreadable file.
				return matches, nil
			}
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = "invalid search pattern or parameters"
			}
			return nil, fmt.Errorf("%w: %s", symerrors.ErrInvalidPattern, msg)
		}
	}

	return matches, nil
}

// decode splits output on '\n' and parses the chunks concurrently.
func (r *Runner) decode(output []byte, filter Filter) []Match {
	if len(output) == 0 {
		return nil
	}
	lines := bytes.Split(output, []byte{'\n'})

	var chunks [][][]byte
	for start := 0; start < len(lines); start += r.chunkLines {
		end := min(start+r.chunkLines, len(lines))
		chunks = append(chunks, lines[start:end])
	}

	if r.pool == nil || len(chunks) == 1 {
		var out []Match
		for _, chunk := range chunks {
			out = append(out, decodeChunk(chunk, filter)...)
		}
		return out
	}

	var (
		mu  sync.Mutex
		out []Match
		wg  sync.WaitGroup
	)
	for _, chunk := range chunks {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			decoded := decodeChunk(chunk, filter)
			if len(decoded) == 0 {
				return
			}
			mu.Lock()
			out = append(out, decoded...)
			mu.Unlock()
		}
		if err := r.pool.Submit(task); err != nil {
			// Pool released or saturated; decode on this goroutine.
			task()
		}
	}
	wg.Wait()
	return out
}

func decodeChunk(lines [][]byte, filter Filter) []Match {
	var out []Match
	for _, line := range lines {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		m, err := ParseMatch(line)
		if err != nil {
			continue
		}
		if filter != nil && !filter(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}
