package ctags

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	symerrors "symfind/internal/errors"
	"symfind/internal/logging"
	"symfind/internal/search/ripgrep"
)

// DefaultArgs make ctags print JSON tags with line numbers for the whole
// tree to stdout.
var DefaultArgs = []string{"--output-format=json", "--fields=+n", "-R", "-f", "-"}

// Command is a ctags invocation in a directory.
type Command struct {
	Bin  string
	Args []string
	Dir  string

	logger *slog.Logger
}

// NewCommand creates a Command running bin with DefaultArgs in dir. Each
// exclude glob becomes an --exclude option.
func NewCommand(bin, dir string, excludes []string, logger *slog.Logger) *Command {
	if bin == "" {
		bin = "ctags"
	}
	if logger == nil {
		logger = logging.Nop()
	}
	args := make([]string, 0, len(DefaultArgs)+len(excludes))
	for _, ex := range excludes {
		args = append(args, "--exclude="+ex)
	}
	args = append(args, DefaultArgs...)
	return &Command{Bin: bin, Args: args, Dir: dir, logger: logger}
}

// String renders the command line.
func (c *Command) String() string {
	return ripgrep.CommandLine(c.Bin, c.Args)
}

// Tags runs the command and calls fn for every tag record in its output.
// Lines that are not tag records are skipped. An error from fn stops ctags.
func (c *Command) Tags(ctx context.Context, fn func(TagInfo) error) error {
	if err := EnsureJSONSupport(ctx, c.Bin); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.Bin, c.Args...)
	cmd.Dir = c.Dir
	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ctags stdout: %w", err)
	}
	c.logger.Debug("running ctags", "command", c.String(), "dir", c.Dir)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %v", symerrors.ErrSpawnFailed, c.Bin, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var fnErr error
	for scanner.Scan() {
		tag, err := ParseTag(scanner.Bytes())
		if err != nil {
			continue
		}
		if fnErr = fn(tag); fnErr != nil {
			cancel()
			break
		}
	}
	scanErr := scanner.Err()
	waitErr := cmd.Wait()

	if stderr.Len() > 0 {
		c.logger.Debug("ctags stderr", "stderr", strings.TrimSpace(stderr.String()))
	}

	switch {
	case fnErr != nil:
		return fnErr
	case ctx.Err() != nil:
		return ctx.Err()
	case scanErr != nil:
		return fmt.Errorf("reading ctags output: %w", scanErr)
	case waitErr != nil:
		return fmt.Errorf("ctags: %w", waitErr)
	}
	return nil
}

// FormattedTagsStream runs the command and calls fn with the display line of
// every tag. It returns the number of lines produced.
func (c *Command) FormattedTagsStream(ctx context.Context, fn func(line string) error) (int, error) {
	total := 0
	err := c.Tags(ctx, func(tag TagInfo) error {
		total++
		return fn(tag.DisplayLine())
	})
	return total, err
}
