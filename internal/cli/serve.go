package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/connectlab/internal/engine"
	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/metrics"
	"github.com/roach88/connectlab/internal/render"
	"github.com/roach88/connectlab/internal/server"
	"github.com/roach88/connectlab/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr        string
	Database    string
	Document    string // resume this document; a new one is created if empty
	Title       string
	DrawTimeout time.Duration
	Tick        time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a document over HTTP",
		Long: `Serve one document over HTTP, journaling every edit to SQLite.

With --doc an existing document is rebuilt from its journal and editing
continues where it stopped. The server exposes the editing operations as
JSON endpoints, the scene as JSON and PNG, and Prometheus metrics at
/metrics.

Examples:
  connectlab serve --db ./circuit.db
  connectlab serve --db ./circuit.db --doc 6f1c... --addr :9090
  connectlab serve --db ./circuit.db --defs ./gates --draw-timeout 5s`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Document, "doc", "", "document id to resume")
	cmd.Flags().StringVar(&opts.Title, "title", "", "title of a new document")
	cmd.Flags().DurationVar(&opts.DrawTimeout, "draw-timeout", 0, "abandon idle connection drawing after this long (0 disables)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", 100*time.Millisecond, "interval between timeout checks")

	return cmd
}

// app is a served document: its journal, event loop and HTTP handler.
type app struct {
	store  *store.Store
	loop   *engine.Loop
	server *server.Server
	doc    string
}

func (a *app) Close() error {
	return a.store.Close()
}

// buildApp opens the journal, rebuilds or creates the document and wires
// the session into a loop and HTTP server. The loop is not started.
func buildApp(ctx context.Context, opts *ServeOptions, logger *slog.Logger) (*app, error) {
	cat, err := LoadCatalog(opts.Defs)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(opts.Database, store.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	doc := opts.Document
	resume := doc != ""
	if resume {
		if _, err := st.ReadDocument(ctx, doc); err != nil {
			st.Close()
			if errors.Is(err, store.ErrDocumentNotFound) {
				return nil, NewExitError(ExitCommandError, fmt.Sprintf("document not found: %s", doc))
			}
			return nil, WrapExitError(ExitCommandError, "failed to read document", err)
		}
	} else {
		doc = engine.UUIDv7Generator{}.Generate()
	}

	rec, err := store.NewRecorder(ctx, st, store.Document{ID: doc, Title: opts.Title})
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create document", err)
	}

	var ops []ir.Op
	if resume {
		state, err := st.GetDocumentState(ctx, doc)
		if err == nil && !state.Replayable() {
			err = fmt.Errorf("journal has %d missing op(s)", len(state.Gaps))
		}
		if err == nil {
			ops, err = st.ReadOps(ctx, doc)
		}
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitFailure, "failed to read journal", err)
		}
	}

	collector := metrics.New()
	session, err := engine.Replay(ops,
		engine.WithCatalog(cat),
		engine.WithLogger(logger),
		engine.WithRecorder(rec),
		engine.WithObserver(collector),
		engine.WithDocumentID(doc),
		engine.WithDrawTimeout(opts.DrawTimeout),
	)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitFailure, "failed to rebuild document", err)
	}
	logger.Info("document ready", "doc", doc, "resumed", resume, "ops", len(ops))

	loop := engine.NewLoop(session, engine.WithTickInterval(opts.Tick), engine.WithLoopLogger(logger))
	srv := server.New(loop,
		server.WithRenderer(render.New()),
		server.WithMetrics(collector.Registry()),
		server.WithLogger(logger),
	)
	return &app{store: st, loop: loop, server: srv, doc: doc}, nil
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	a, err := buildApp(ctx, opts, logger)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return reportLoadError(formatter, err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	loopDone := make(chan error, 1)
	go func() { loopDone <- a.loop.Run(ctx) }()

	httpSrv := &http.Server{
		Addr:              opts.Addr,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpSrv.ListenAndServe() }()

	fmt.Fprintf(formatter.Writer, "Serving document %s on %s\n", a.doc, opts.Addr)
	fmt.Fprintln(formatter.Writer, "Press Ctrl-C to stop.")

	var failure error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			failure = WrapExitError(ExitCommandError, "server error", err)
		}
		cancel()
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("loop stopped with error", "error", err)
	}

	logger.Info("server stopped gracefully", "doc", a.doc)
	return failure
}
