package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/cardset/internal/model"
	"github.com/ppiankov/cardset/internal/pipeline"
)

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive topic search",
	Long: `Shell reads topics from stdin, one per line, and prints each card set
as it is built. Typing a new topic while one is still building supersedes
it: the older set is discarded when it arrives.

Commands:
  ?            suggestions for the last topic
  ? <topic>    suggestions for <topic>
  quit, exit   leave the shell`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		sh := &shell{
			session:  pipeline.NewSession(a.pipeline),
			suggest:  a.pipeline.Suggest,
			renderer: a.renderer,
			out:      cmd.OutOrStdout(),
			errOut:   cmd.ErrOrStderr(),
			logger:   a.logger,
		}
		return sh.run(cmd.Context(), cmd.InOrStdin())
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// shell is the read loop behind the shell command
type shell struct {
	session  *pipeline.Session
	suggest  func(ctx context.Context, query string) []model.Suggestion
	renderer *pipeline.Renderer
	out      io.Writer
	errOut   io.Writer
	logger   *zap.Logger

	mu sync.Mutex // Serializes writes to out and errOut
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	var last string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "quit" || line == "exit":
			return nil
		case strings.HasPrefix(line, "?"):
			query := strings.TrimSpace(strings.TrimPrefix(line, "?"))
			if query == "" {
				query = last
			}
			s.printSuggestions(ctx, query)
			continue
		}

		last = line
		run := s.session.Start(ctx, line)
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.printRun(run)
		}()
	}
	return scanner.Err()
}

func (s *shell) printRun(run *pipeline.Run) {
	set, current, err := run.Wait()
	if !current {
		s.logger.Debug("discarding superseded result", zap.String("query", run.Query))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		fmt.Fprintf(s.errOut, "✗ %s: %v\n", run.Query, err)
		return
	}
	if err := s.renderer.RenderSet(s.out, set); err != nil {
		fmt.Fprintf(s.errOut, "✗ %s: %v\n", run.Query, err)
	}
}

func (s *shell) printSuggestions(ctx context.Context, query string) {
	if query == "" {
		return
	}
	suggestions := s.suggest(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(suggestions) == 0 {
		fmt.Fprintln(s.errOut, "No suggestions.")
		return
	}
	if err := s.renderer.RenderSuggestions(s.out, suggestions); err != nil {
		fmt.Fprintf(s.errOut, "✗ suggestions: %v\n", err)
	}
}
