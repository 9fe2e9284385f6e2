package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/quorum/internal/backend"
	appconfig "github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/council"
	"github.com/Iron-Ham/quorum/internal/credentials"
	"github.com/Iron-Ham/quorum/internal/ensemble"
	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/problem"
	"github.com/Iron-Ham/quorum/internal/render"
	"github.com/Iron-Ham/quorum/internal/tui/progress"
	"github.com/Iron-Ham/quorum/internal/tui/styles"
)

// Hooks replaced in tests.
var (
	newRegistry = func(cfg *appconfig.Config) (*backend.Registry, error) {
		return backend.NewRegistryFromConfig(cfg.Backends, credentials.Lookup)
	}
	isTerminal = func(w io.Writer) bool {
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}
)

// runFlags are shared by the vote, debate and committee commands.
var (
	onlyBackends []string
	problemFiles []string
	envFiles     []string
	watchProblem bool
	useTUI       bool
	outputFormat string
	openBrowser  bool
	batchLimit   int
)

func addRunFlags(c *cobra.Command) {
	c.Flags().StringSliceVar(&onlyBackends, "only", nil, "Dispatch only to backends whose id matches these globs (e.g. 'llama*,groq')")
	c.Flags().StringSliceVarP(&problemFiles, "problem-file", "p", nil, "Read the problem from these files (default: problem.txt)")
	c.Flags().StringSliceVar(&envFiles, "env-file", nil, "Load API keys from these dotenv files (default: .env)")
	c.Flags().BoolVarP(&watchProblem, "watch", "w", false, "Re-run every time the problem file is saved")
	c.Flags().BoolVar(&useTUI, "tui", false, "Show a live progress view")
	c.Flags().StringVarP(&outputFormat, "format", "f", "", "Output format: html, terminal, text or json (default from config)")
	c.Flags().BoolVar(&openBrowser, "open", true, "Open the HTML page in the browser")
	c.Flags().IntVar(&batchLimit, "batch-parallel", 2, "Problems solved concurrently when several files are given")
}

// applyRunFlags overrides config values with flags the user set.
func applyRunFlags(cmd *cobra.Command, cfg *appconfig.Config) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = outputFormat
	}
	if flags.Changed("open") {
		cfg.Output.OpenBrowser = openBrowser
	}
	if flags.Changed("mode") {
		cfg.Vote.Mode = voteMode
	}
	if flags.Changed("a") {
		cfg.Debate.A = debateA
	}
	if flags.Changed("b") {
		cfg.Debate.B = debateB
	}
	if flags.Changed("rounds") {
		cfg.Debate.Rounds = debateRounds
	}
	if flags.Changed("on-turn-failure") {
		cfg.Debate.OnTurnFailure = turnFailure
	}
}

// session is everything one command invocation needs to run problems.
type session struct {
	cfg      *appconfig.Config
	runner   *council.Runner
	bus      *event.Bus
	logger   *logging.Logger
	renderer render.Renderer
	out      io.Writer
	errOut   io.Writer
}

func newLogger(cfg *appconfig.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLoggerWithRotation(cfg.Logging.ResolveDir(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && isTerminal(w) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			return width
		}
	}
	return 0
}

func newSession(cmd *cobra.Command) (*session, error) {
	if _, err := credentials.Load(nil, envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	cfg, err := appconfig.Load()
	if err != nil {
		return nil, err
	}
	applyRunFlags(cmd, cfg)
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, appconfig.ValidationErrors(errs)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	reg, err := newRegistry(cfg)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	ens, err := reg.Ensemble().Filter(onlyBackends)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	bus := event.NewBus()
	runner, err := council.New(cfg, reg,
		council.WithEnsemble(ens),
		council.WithBus(bus),
		council.WithLogger(logger),
	)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	out := cmd.OutOrStdout()
	renderer, err := render.New(cfg.Output.Format, render.Options{
		Out:   out,
		Width: terminalWidth(out),
		HTML: render.HTMLOptions{
			Dir:  cfg.Output.Dir,
			Open: cfg.Output.OpenBrowser,
		},
	})
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	return &session{
		cfg:      cfg,
		runner:   runner,
		bus:      bus,
		logger:   logger,
		renderer: renderer,
		out:      out,
		errOut:   cmd.ErrOrStderr(),
	}, nil
}

// problemSources returns an inline source when args are given, otherwise
// one file source per --problem-file (default problem.txt).
func problemSources(args []string) []problem.Source {
	if len(args) > 0 {
		return []problem.Source{problem.StaticSource(strings.Join(args, " "))}
	}
	files := problemFiles
	if len(files) == 0 {
		files = []string{problem.DefaultFile}
	}
	sources := make([]problem.Source, 0, len(files))
	for _, f := range files {
		sources = append(sources, problem.NewFileSource(nil, f))
	}
	return sources
}

func runStrategy(cmd *cobra.Command, args []string, strategy council.Strategy) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.logger.Close()

	sources := problemSources(args)
	if watchProblem {
		if len(sources) != 1 {
			return errors.NewValidationError("--watch needs exactly one problem file").WithField("watch")
		}
		fsrc, ok := sources[0].(*problem.FileSource)
		if !ok {
			return errors.NewValidationError("--watch needs a problem file, not an inline problem").WithField("watch")
		}
		return s.watch(ctx, strategy, fsrc)
	}

	problems := make([]ensemble.Problem, 0, len(sources))
	for _, src := range sources {
		p, err := src.Read(ctx)
		if err != nil {
			return err
		}
		problems = append(problems, p)
	}

	if len(problems) == 1 {
		return s.solve(ctx, strategy, problems[0])
	}
	return s.solveBatch(ctx, strategy, problems)
}

// solve runs one problem with progress output and renders the result.
func (s *session) solve(ctx context.Context, strategy council.Strategy, p ensemble.Problem) error {
	var res *council.Result
	work := func(ctx context.Context) error {
		var err error
		res, err = s.runner.Run(ctx, strategy, p)
		return err
	}

	var err error
	if useTUI && isTerminal(s.out) {
		err = progress.Run(ctx, s.bus, "quorum "+string(strategy), work)
	} else {
		detach := attachLineProgress(s.bus, s.errOut)
		err = work(ctx)
		detach()
	}
	return s.finish(ctx, res, err)
}

// finish renders res, or reports failures when the run produced no answer.
func (s *session) finish(ctx context.Context, res *council.Result, runErr error) error {
	if runErr != nil {
		if res != nil {
			reportFailures(s.errOut, res.Failures)
		}
		return runErr
	}
	return s.renderer.Render(ctx, res)
}

func (s *session) solveBatch(ctx context.Context, strategy council.Strategy, problems []ensemble.Problem) error {
	detach := attachLineProgress(s.bus, s.errOut)
	results, batchErr := s.runner.RunBatch(ctx, strategy, problems, batchLimit)
	detach()

	var errs []error
	for i, res := range results {
		fmt.Fprintln(s.out, styles.Title.Render(fmt.Sprintf("Problem %d of %d", i+1, len(results))))
		if res == nil || res.Answer == "" {
			if res != nil {
				reportFailures(s.errOut, res.Failures)
			}
			continue
		}
		if err := s.renderer.Render(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	if batchErr != nil {
		errs = append(errs, batchErr)
	}
	return errors.Join(errs...)
}

// watch solves the problem once, then again every time the file changes,
// until ctx is canceled. Failed runs are reported and the watch continues.
func (s *session) watch(ctx context.Context, strategy council.Strategy, src *problem.FileSource) error {
	updates, err := src.Watch(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.errOut, styles.Muted.Render(fmt.Sprintf("Watching %s (Ctrl+C to stop)", src.Path())))

	for u := range updates {
		if u.Err != nil {
			fmt.Fprintln(s.errOut, styles.Warning.Render(u.Err.Error()))
			continue
		}
		if err := s.solve(ctx, strategy, u.Problem); err != nil {
			if ctx.Err() != nil {
				break
			}
			fmt.Fprintln(s.errOut, styles.Error.Render("Error: "+err.Error()))
		}
	}
	return nil
}

// reportFailures prints which backends failed and why.
func reportFailures(w io.Writer, failures []ensemble.Failure) {
	for _, f := range failures {
		fmt.Fprintln(w, styles.Status("failed", f.String()))
	}
}
