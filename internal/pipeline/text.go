package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rbright/aurora/internal/dispatch"
)

// RunText reads one utterance per line from in until EOF, a quit command,
// or ctx cancellation. In direct mode every line is classified and dispatched
// without the wake word; otherwise lines go through the session machine.
func (c *Commander) RunText(ctx context.Context, in io.Reader, direct bool) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read text input: %w", err)
					}
				default:
				}
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if direct {
				if c.Execute(ctx, line, "") == dispatch.ResultQuit {
					return nil
				}
				continue
			}
			if _, stop := c.Observe(ctx, line); stop {
				return nil
			}
		}
	}
}
