package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	configtoml "github.com/Tobito320/ryxsurf/internal/adapters/config/toml"
	"github.com/Tobito320/ryxsurf/internal/adapters/engine/chromium"
	prommetrics "github.com/Tobito320/ryxsurf/internal/adapters/metrics/prometheus"
	"github.com/Tobito320/ryxsurf/internal/application"
	"github.com/Tobito320/ryxsurf/internal/loop"
	"github.com/Tobito320/ryxsurf/internal/ports"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type browserEngine interface {
	ports.Engine
	Close() error
}

func newChromiumEngine(cfg configtoml.EngineConfig, logger zerolog.Logger) browserEngine {
	return chromium.New(chromium.Config{
		ControlURL:        cfg.ControlURL,
		Bin:               cfg.Bin,
		Headless:          cfg.Headless,
		NavigationTimeout: cfg.NavigationTimeout,
		Width:             cfg.Width,
		Height:            cfg.Height,
	}, logger)
}

func newRunCmd(app *app) *cobra.Command {
	var noConsole bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the browser with autosave, idle unloading and a command console",
		Long:  "run restores the stored tree, loads the visible tab, unloads idle tabs in the background and saves periodically. Commands such as \"open https://go.dev\", \"tab 2\" or \"tree\" are read from stdin; \"quit\" or end of input stops it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var in io.Reader
			if !noConsole {
				in = cmd.InOrStdin()
			}
			return app.run(ctx, in, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")
	flags.Bool("headless", true, "Run the browser without a window")
	flags.String("control-url", "", "Attach to a running browser DevTools endpoint")
	flags.BoolVar(&noConsole, "no-console", false, "Do not read commands from stdin")
	app.bindFlag("metrics.addr", flags.Lookup("metrics-addr"))
	app.bindFlag("engine.headless", flags.Lookup("headless"))
	app.bindFlag("engine.control_url", flags.Lookup("control-url"))

	return cmd
}

// run owns the event loop until ctx is done, the console quits or a
// component fails. The tree is saved once more on the way out.
func (a *app) run(ctx context.Context, in io.Reader, stdout, stderr io.Writer) error {
	out := &syncWriter{w: stdout}
	lp := loop.New(loop.WithLogger(a.component("loop")))
	metrics := prommetrics.New()
	reporter := application.NewErrorReporter(a.component("errors"), 0)
	engine := a.newEngine(a.cfg.Engine, a.component("engine"))

	p, err := a.openProfile(ctx, profileDeps{
		engine:   engine,
		executor: lp,
		metrics:  metrics,
		reporter: reporter,
		unlock:   unlockWithSpinner(stderr),
	})
	if err != nil {
		return errors.Join(err, engine.Close())
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		if err := lp.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	var stopUnload func()
	startErr := lp.Do(gctx, func() {
		p.tree.Subscribe(func() { metrics.SetLoadedTabs(p.tree.LoadedCount()) })
		if tab := p.tree.CurrentTab(); tab != nil {
			if err := tab.Activate(gctx); err != nil {
				reporter.Report(err)
			}
		}
		p.persistence.EnableAutosave(gctx, lp, a.cfg.AutosaveInterval)
		stopUnload = p.unload.Start(gctx, lp, a.cfg.UnloadCheckInterval)
	})
	if startErr != nil {
		cancel()
	}

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case err := <-reporter.Errors():
				out.printf("error: %v\n", err)
			}
		}
	})

	if addr := a.cfg.MetricsAddr; addr != "" {
		a.serveMetrics(gctx, g, addr, metrics.Handler())
	}

	if a.source.Watch(func(cfg configtoml.Config, err error) {
		if err != nil {
			a.logger.Warn().Err(err).Msg("ignoring invalid config change")
			return
		}
		lp.Post(func() { p.unload.SetPolicy(unloadPolicyFrom(cfg)) })
	}) {
		a.logger.Debug().Str("path", a.source.Path()).Msg("watching config file")
	}

	if in != nil {
		lines := scanLines(gctx, in)
		g.Go(func() error {
			defer cancel()
			a.console(gctx, lp, p, lines, out)
			return nil
		})
	}

	err = g.Wait()
	if stopUnload != nil {
		stopUnload()
	}
	lp.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	return errors.Join(err, p.persistence.Shutdown(shutdownCtx), engine.Close())
}

func (a *app) serveMetrics(ctx context.Context, g *errgroup.Group, addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}

	g.Go(func() error {
		a.logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve metrics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
}

// console executes each line on the loop until the input ends or the user
// quits.
func (a *app) console(ctx context.Context, lp *loop.Loop, p *profile, lines <-chan string, out *syncWriter) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "quit", "exit":
				return
			}

			var (
				output  string
				execErr error
			)
			if err := lp.Do(ctx, func() { output, execErr = a.execute(ctx, p, line) }); err != nil {
				return
			}
			if execErr != nil {
				out.printf("error: %v\n", execErr)
				continue
			}
			if output != "" {
				out.printf("%s\n", output)
			}
		}
	}
}

// execute runs on the loop.
func (a *app) execute(ctx context.Context, p *profile, line string) (string, error) {
	command, err := application.ParseCommand(line)
	if err != nil {
		return "", err
	}

	switch command.Kind {
	case application.CommandSave:
		if err := p.persistence.SaveAll(ctx); err != nil {
			return "", err
		}
		return "saved", nil
	case application.CommandUnload:
		report, err := p.unload.RunPass(ctx)
		return fmt.Sprintf("unloading %d of %d loaded tabs", len(report.Selected), report.Loaded), err
	case application.CommandTree:
		var b strings.Builder
		if err := writeTree(&b, a, p.tree, false); err != nil {
			return "", err
		}
		return strings.TrimRight(b.String(), "\n"), nil
	default:
		if err := application.Apply(ctx, p.tree, p.snapshots, command); err != nil {
			return "", err
		}
		return describeCurrent(p.tree), nil
	}
}

func scanLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)

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
	}()

	return lines
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.w, format, args...)
}
