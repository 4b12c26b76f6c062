// Package daemon hosts the long-running service: a unix-socket JSON-RPC
// server over the generation engine, with single-instance locking, run
// persistence, and a hot-reloaded rule catalog.
package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/planwright/planwright/internal/config"
	"github.com/planwright/planwright/internal/engine"
	"github.com/planwright/planwright/internal/generate"
	"github.com/planwright/planwright/internal/logger"
	"github.com/planwright/planwright/internal/proposer"
	"github.com/planwright/planwright/internal/rules"
	"github.com/planwright/planwright/internal/scoring"
	"github.com/planwright/planwright/internal/store"
)

var log = logger.ForComponent("daemon")

const Version = "0.3.0"

type Daemon struct {
	cfg      *config.Config
	listener net.Listener

	proposer  engine.Proposer
	generator *generate.Generator
	watcher   *rules.Watcher
	runs      *store.RunStore
	cache     *lru.Cache[string, *scoring.Result]

	lock *LockFile
	pid  *PIDFile

	conns        map[*jsonrpc2.Conn]bool
	connMu       sync.Mutex
	shutdown     chan struct{}
	shutdownOnce sync.Once
	startTime    time.Time
}

// New wires the daemon from config. The rule catalog is loaded up front
// so a broken overlay fails startup instead of the first request.
func New(cfg *config.Config) (*Daemon, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	watcher, err := rules.NewWatcher(cfg.CatalogDir, cfg.Watcher)
	if err != nil {
		return nil, fmt.Errorf("load rule catalog: %w", err)
	}

	cache, err := lru.New[string, *scoring.Result](cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:       cfg,
		proposer:  buildProposer(cfg),
		generator: generate.New(),
		watcher:   watcher,
		cache:     cache,
		lock:      NewLockFile(cfg.LockPath),
		pid:       NewPIDFile(cfg.PIDPath),
		conns:     make(map[*jsonrpc2.Conn]bool),
		shutdown:  make(chan struct{}),
		startTime: time.Now(),
	}

	if cfg.DBPath != "" {
		runs, err := store.NewRunStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open run store: %w", err)
		}
		d.runs = runs
	}

	return d, nil
}

// buildProposer prefers the model-backed proposer when an API key is
// configured and falls back to the deterministic generator.
func buildProposer(cfg *config.Config) engine.Proposer {
	if cfg.LLM.APIKey != "" {
		p, err := proposer.NewLLMProposer(cfg.LLM)
		if err == nil {
			log.Info("using model-backed proposer", "model", cfg.LLM.Model)
			return p
		}
		log.Warn("model proposer unavailable, using generator", "error", err)
	}
	return proposer.NewGeneratorProposer()
}

// Start acquires the instance lock, opens the socket, and serves until
// a signal or Shutdown. It blocks.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.lock.Acquire(); err != nil {
		return err
	}
	if err := d.pid.Write(); err != nil {
		d.lock.Release()
		return err
	}

	if err := d.watcher.Start(ctx); err != nil {
		d.cleanupFiles()
		return err
	}

	if err := os.RemoveAll(d.cfg.SocketPath); err != nil {
		d.cleanupFiles()
		return fmt.Errorf("failed to remove socket: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(d.cfg.SocketPath), 0755); err != nil {
		d.cleanupFiles()
		return fmt.Errorf("failed to create socket dir: %w", err)
	}

	listener, err := net.Listen("unix", d.cfg.SocketPath)
	if err != nil {
		d.cleanupFiles()
		return fmt.Errorf("failed to listen: %w", err)
	}
	d.listener = listener

	if err := os.Chmod(d.cfg.SocketPath, 0700); err != nil {
		d.Shutdown()
		return fmt.Errorf("failed to chmod socket: %w", err)
	}

	log.Info("daemon listening", "socket", d.cfg.SocketPath, "version", Version)

	go d.acceptConnections(ctx)
	d.waitForSignal(ctx)
	return nil
}

func (d *Daemon) acceptConnections(ctx context.Context) {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.shutdown:
				return
			default:
				continue
			}
		}

		stream := jsonrpc2.NewBufferedStream(conn, jsonrpc2.PlainObjectCodec{})
		rpcConn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(d.handle))

		d.connMu.Lock()
		d.conns[rpcConn] = true
		d.connMu.Unlock()

		go func() {
			<-rpcConn.DisconnectNotify()
			d.connMu.Lock()
			delete(d.conns, rpcConn)
			d.connMu.Unlock()
		}()
	}
}

func (d *Daemon) waitForSignal(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		log.Info("signal received, shutting down", "signal", sig.String())
	case <-ctx.Done():
	case <-d.shutdown:
	}
	d.Shutdown()
}

func (d *Daemon) Shutdown() {
	d.shutdownOnce.Do(func() {
		close(d.shutdown)

		if d.listener != nil {
			d.listener.Close()
		}

		d.connMu.Lock()
		for conn := range d.conns {
			conn.Close()
		}
		d.connMu.Unlock()

		d.watcher.Stop()
		if d.runs != nil {
			d.runs.Close()
		}

		os.Remove(d.cfg.SocketPath)
		d.cleanupFiles()
		log.Info("daemon stopped", "uptime", time.Since(d.startTime).Round(time.Second).String())
	})
}

func (d *Daemon) cleanupFiles() {
	d.pid.Remove()
	d.lock.Release()
}

func (d *Daemon) Uptime() time.Duration {
	return time.Since(d.startTime)
}
