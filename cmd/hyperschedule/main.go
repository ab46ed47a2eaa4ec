// hyperschedule is the course-information aggregation server: it ingests
// course listings from institutional scrapers and serves full snapshots and
// incremental diffs to polling clients.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	log "github.com/inconshreveable/log15"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/hyperschedule/hyperschedule-api/api"
	"github.com/hyperschedule/hyperschedule-api/config"
	"github.com/hyperschedule/hyperschedule-api/course"
	"github.com/hyperschedule/hyperschedule-api/notify"
	"github.com/hyperschedule/hyperschedule-api/persist"
	"github.com/hyperschedule/hyperschedule-api/snapshot"
	"github.com/hyperschedule/hyperschedule-api/worker"
)

var configFileFlag = cli.StringFlag{
	Name:  "config",
	Usage: "TOML configuration file",
}

func main() {
	app := cli.NewApp()
	app.Name = "hyperschedule"
	app.Usage = "course information aggregation server"
	app.ArgsUsage = "[key=val ...]"
	app.Flags = []cli.Flag{configFileFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	if path := ctx.String(configFileFlag.Name); path != "" {
		if err := config.LoadFile(path); err != nil {
			return err
		}
	}
	for _, arg := range ctx.Args() {
		key, val, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("malformed key=val argument: %q", arg)
		}
		if err := config.Set(key, val); err != nil {
			return err
		}
	}
	setupLogging()

	db := snapshot.NewDatabase()

	var hook *notify.Webhook
	if config.Bool("snitch") {
		hook = notify.NewWebhook(notify.DefaultURL, notify.DefaultInterval)
	}
	var w *worker.Worker
	if command := strings.Fields(config.Get("scraper_command")); len(command) > 0 {
		w = worker.New(db, workerConfig(command, hook))
		w.Start()
		defer w.Stop()
	}
	server := api.NewServer(db, hook)

	host := "127.0.0.1"
	if config.Bool("expose") {
		host = "0.0.0.0"
	}
	srv := &http.Server{
		Addr:    net.JoinHostPort(host, config.Get("port")),
		Handler: server,
	}
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		log.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// setupLogging wires the root logger per the verbose and debug config vars.
func setupLogging() {
	level := log.LvlInfo
	if config.Bool("verbose") || config.Bool("debug") {
		level = log.LvlDebug
	}
	log.Root().SetHandler(log.LvlFilterHandler(level, log.StreamHandler(os.Stderr, log.TerminalFormat())))
}

// workerConfig assembles the refresh worker from the config vars.
func workerConfig(command []string, hook *notify.Webhook) worker.Config {
	cfg := worker.Config{
		Scraper:  config.Get("scraper_id"),
		Term:     workerTerm(),
		Command:  command,
		Interval: durationVar("scraper_interval", worker.DefaultInterval),
		Timeout:  durationVar("scraper_timeout", worker.DefaultTimeout),
		Webhook:  hook,
	}
	var local, remote persist.Store
	if config.Bool("cache") {
		local = persist.NewFileStore(config.Get("cache_file"))
	}
	if config.Bool("s3_read") || config.Bool("s3_write") {
		sess, err := session.NewSession()
		if err != nil {
			log.Crit("Failed to initialize S3 session", "err", err)
			os.Exit(1)
		}
		remote = persist.NewS3Store(s3.New(sess), persist.DefaultBucket, persist.DefaultKey)
	}
	if local != nil {
		cfg.Seed = append(cfg.Seed, local)
		cfg.Sinks = append(cfg.Sinks, local)
	}
	if remote != nil {
		if config.Bool("s3_read") {
			cfg.Seed = append(cfg.Seed, remote)
		}
		if config.Bool("s3_write") {
			cfg.Sinks = append(cfg.Sinks, remote)
		}
	}
	return cfg
}

// workerTerm builds the term descriptor the worker's ingests are bound to.
// The scraper subprocess protocol emits a bare course tree, so the term has
// to come from configuration.
func workerTerm() course.Term {
	term := course.Term{
		Code: config.Get("scraper_term_code"),
		Name: config.Get("scraper_term_name"),
	}
	if term.Code == "" {
		term.Code = "unknown"
	}
	if term.Name == "" {
		term.Name = term.Code
	}
	term.SortKey = []interface{}{json.Number("0"), term.Code}
	return term
}

// durationVar reads a config var holding a number of seconds. Illegal values
// fall back to a sane default instead of refusing to start.
func durationVar(key string, fallback time.Duration) time.Duration {
	raw := config.Get(key)
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		log.Warn("Illegal duration config var, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return time.Duration(secs) * time.Second
}
