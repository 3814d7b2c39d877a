// Command leavedesk serves the employee and leave request API and provides
// maintenance subcommands.
//
//	leavedesk serve                 run the HTTP server
//	leavedesk backup [-out DIR]     snapshot the database to DIR or to S3
//	leavedesk journal [-dir DIR]    print journaled changes as JSON lines
//
// Configuration is read from LEAVEDESK_* environment variables.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leavedesk/leavedesk/internal/backup"
	"github.com/leavedesk/leavedesk/internal/config"
	"github.com/leavedesk/leavedesk/internal/httpapi"
	"github.com/leavedesk/leavedesk/internal/leave"
	"github.com/leavedesk/leavedesk/internal/metrics"
	"github.com/leavedesk/leavedesk/journal"
	"github.com/leavedesk/leavedesk/store"
)

const journalFileName = "changes-*.wal"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: leavedesk serve|backup|journal [flags]")
		return 2
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "leavedesk: invalid configuration: %v\n", err)
		return 2
	}
	logger := newLogger(cfg, stderr)
	slog.SetDefault(logger)

	var err error
	switch args[0] {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "backup":
		err = runBackup(ctx, cfg, logger, args[1:])
	case "journal":
		err = dumpJournal(ctx, cfg, logger, args[1:], stdout)
	default:
		fmt.Fprintf(stderr, "leavedesk: unknown command %q\n", args[0])
		return 2
	}
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "leavedesk: "+args[0]+" failed", slog.Any("err", err))
		return 1
	}
	return 0
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func openApp(cfg config.Config, logger *slog.Logger) (*leave.App, error) {
	return leave.Open(cfg.DBPath, store.Options{
		Backend: cfg.StoreBackend(),
		Logger:  logger,
		Verbose: cfg.Verbose,
	})
}

func openJournal(ctx context.Context, cfg config.Config, dir string, logger *slog.Logger) *journal.Journal {
	return journal.New(dir, journal.Options{
		Context:     ctx,
		FileName:    journalFileName,
		MaxFileSize: cfg.JournalMaxFileSize,
		DebugName:   "changes",
		Logger:      logger,
		Verbose:     cfg.Verbose,
	})
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	app, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	opt := leave.Options{
		StrictEmployeeRefs: cfg.StrictEmployeeRefs,
		GuardTransitions:   cfg.GuardTransitions,
		Logger:             logger,
	}
	if cfg.JournalDir != "" {
		j := openJournal(ctx, cfg, cfg.JournalDir, logger)
		if err := j.StartWriting(); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer j.FinishWriting()
		opt.Journal = j
	}
	var rec *metrics.Recorder
	if cfg.MetricsEnabled {
		rec = metrics.New()
		rec.WatchStore(app.DB)
		opt.Metrics = rec
	}
	svc := leave.NewService(app, opt)

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.NewRouter(svc, httpapi.Options{
			Logger:       logger,
			Metrics:      rec,
			MaxBodyBytes: cfg.MaxBodyBytes,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogAttrs(ctx, slog.LevelInfo, "leavedesk: listening", slog.String("addr", cfg.Addr), slog.String("backend", app.DB.Backend().String()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.LogAttrs(context.Background(), slog.LevelInfo, "leavedesk: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runBackup(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	out := fs.String("out", "", "write the snapshot into this directory instead of S3")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var target backup.Target
	switch {
	case *out != "":
		target = backup.FileTarget{Dir: *out}
	case cfg.BackupS3Bucket != "":
		s3t, err := backup.NewS3(ctx, backup.S3Config{
			Region:    cfg.BackupS3Region,
			Bucket:    cfg.BackupS3Bucket,
			Prefix:    cfg.BackupS3Prefix,
			Endpoint:  cfg.BackupS3Endpoint,
			PathStyle: cfg.BackupS3PathStyle,
		})
		if err != nil {
			return err
		}
		target = s3t
	default:
		return errors.New("no backup target: pass -out or set LEAVEDESK_BACKUP_S3_BUCKET")
	}

	app, err := openApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	_, err = backup.Run(ctx, app.DB, target, time.Now(), logger)
	return err
}

type journalLine struct {
	Segment uint32        `json:"segment"`
	Record  uint64        `json:"record"`
	Time    time.Time     `json:"time"`
	Change  *leave.Change `json:"change"`
}

func dumpJournal(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	dir := fs.String("dir", cfg.JournalDir, "journal directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return errors.New("no journal directory: pass -dir or set LEAVEDESK_JOURNAL_DIR")
	}

	enc := json.NewEncoder(stdout)
	return openJournal(ctx, cfg, *dir, logger).Read(func(rec journal.Record) error {
		c, err := leave.DecodeChange(rec.Data)
		if err != nil {
			return fmt.Errorf("record %d: %w", rec.ID, err)
		}
		return enc.Encode(journalLine{Segment: rec.Segment, Record: rec.ID, Time: rec.Time(), Change: c})
	})
}
