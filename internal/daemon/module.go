// Package daemon composes the delivery engine for one profile with fx.
package daemon

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/matheus3301/botchat/internal/api"
	"github.com/matheus3301/botchat/internal/bus"
	"github.com/matheus3301/botchat/internal/config"
	"github.com/matheus3301/botchat/internal/ids"
	"github.com/matheus3301/botchat/internal/journal"
	"github.com/matheus3301/botchat/internal/lock"
	"github.com/matheus3301/botchat/internal/logging"
	"github.com/matheus3301/botchat/internal/netmon"
	"github.com/matheus3301/botchat/internal/pending"
	"github.com/matheus3301/botchat/internal/profile"
	"github.com/matheus3301/botchat/internal/reconcile"
	"github.com/matheus3301/botchat/internal/status"
	"github.com/matheus3301/botchat/internal/transport"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params holds the resolved profile passed to the fx module.
type Params struct {
	Profile    string
	SocketPath string         // optional override for testing; empty = profile default
	Dir        string         // optional profile directory override
	Config     *config.Config // optional; nil = load ~/.botchat/config.toml
}

func (p Params) dir() string {
	if p.Dir != "" {
		return p.Dir
	}
	return profile.Dir(p.Profile)
}

func (p Params) socketPath() string {
	if p.SocketPath != "" {
		return p.SocketPath
	}
	return filepath.Join(p.dir(), filepath.Base(profile.SocketPath(p.Profile)))
}

func (p Params) logPath() string {
	return filepath.Join(p.dir(), "logs", filepath.Base(profile.LogPath(p.Profile)))
}

func (p Params) journalPath() string {
	return filepath.Join(p.dir(), filepath.Base(profile.JournalPath(p.Profile)))
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLock,
			provideBus,
			provideStateMachine,
			provideIDs,
			providePending,
			provideMonitor,
			provideSocket,
			provideRepository,
			provideJournal,
			provideChatService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	if p.Config != nil {
		cfg := *p.Config
		cfg.ApplyDefaults()
		return &cfg, nil
	}
	return config.LoadOrDefault(profile.ConfigPath())
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(p.logPath(), p.Profile, cfg.Log.Level)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("dir", p.dir()))
	l, err := lock.Acquire(p.dir())
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideIDs() (*ids.Generator, error) {
	return ids.New(1)
}

func providePending() *pending.Store {
	return pending.New()
}

type monitorResult struct {
	fx.Out

	Monitor netmon.Monitor
	Switch  *netmon.Switch
	Prober  *netmon.Prober
}

// provideMonitor probes ProbeAddr when set; otherwise the network starts
// reachable behind a switch that SetNetwork can flip.
func provideMonitor(cfg *config.Config, b *bus.Bus, logger *zap.Logger) monitorResult {
	if cfg.Network.ProbeAddr != "" {
		pr := netmon.NewProber(netmon.ProberOptions{
			Addr:     cfg.Network.ProbeAddr,
			Interval: cfg.Network.ProbeInterval,
			Timeout:  cfg.Network.ProbeTimeout,
		}, b, logger)
		logger.Info("probing network", zap.String("addr", cfg.Network.ProbeAddr))
		return monitorResult{Monitor: pr, Prober: pr}
	}
	sw := netmon.NewSwitch(true, b, logger)
	return monitorResult{Monitor: sw, Switch: sw}
}

func provideSocket(cfg *config.Config, m *status.Machine, gen *ids.Generator, logger *zap.Logger) *transport.Socket {
	return transport.NewSocket(transport.Options{
		URL:          cfg.Endpoint.URL,
		APIKey:       cfg.Endpoint.APIKey,
		PingInterval: cfg.Endpoint.PingInterval,
		DialTimeout:  cfg.Endpoint.DialTimeout,
		WriteTimeout: cfg.Endpoint.WriteTimeout,
		ReadLimit:    cfg.Endpoint.ReadLimit,
	}, m, gen.FrameID, logger)
}

func provideRepository(cfg *config.Config, store *pending.Store, mon netmon.Monitor, sock *transport.Socket, b *bus.Bus, gen *ids.Generator, logger *zap.Logger) *reconcile.Repository {
	opts := reconcile.DefaultOptions()
	opts.Redial = cfg.RedialEnabled()
	if cfg.Delivery.RedialMaxElapsed > 0 {
		opts.RedialMaxElapsed = cfg.Delivery.RedialMaxElapsed
	}
	opts.Seeds = cfg.Seeds()
	return reconcile.New(reconcile.Deps{
		Pending: store,
		Monitor: mon,
		Client:  sock,
		Bus:     b,
		IDs:     gen,
		Logger:  logger,
	}, opts)
}

type journalResult struct {
	fx.Out

	DB       *journal.DB
	Recorder *journal.Recorder
}

// provideJournal opens the delivery journal, or yields nils when disabled.
func provideJournal(p Params, cfg *config.Config, b *bus.Bus, logger *zap.Logger) (journalResult, error) {
	if !cfg.JournalEnabled() {
		logger.Info("delivery journal disabled")
		return journalResult{}, nil
	}
	path := p.journalPath()
	db, err := journal.Open(path)
	if err != nil {
		return journalResult{}, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return journalResult{}, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("journal initialized", zap.String("path", path))
	return journalResult{DB: db, Recorder: journal.NewRecorder(db, b, logger)}, nil
}

func provideChatService(p Params, repo *reconcile.Repository, m *status.Machine, sw *netmon.Switch, db *journal.DB, logger *zap.Logger) *api.ChatService {
	return api.NewChatService(api.Deps{
		Profile:    p.Profile,
		Repository: repo,
		Machine:    m,
		Switch:     sw,
		Journal:    db,
		Logger:     logger,
	})
}

type lifecycleParams struct {
	fx.In

	Config   *config.Config
	Server   *Server
	Service  *api.ChatService
	Lock     *lock.Lock
	Repo     *reconcile.Repository
	Socket   *transport.Socket
	Prober   *netmon.Prober
	Journal  *journal.DB
	Recorder *journal.Recorder
	Bus      *bus.Bus
	Logger   *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, in lifecycleParams) {
	var (
		bg     context.Context
		cancel context.CancelFunc
		wg     sync.WaitGroup
	)
	logger := in.Logger

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			bg, cancel = context.WithCancel(context.Background())

			if in.Recorder != nil {
				in.Recorder.Start(bg)
			}
			if in.Prober != nil {
				in.Prober.Start(bg)
			}
			in.Repo.Start(bg)

			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := in.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if in.Config.AutoConnect() {
				wg.Add(1)
				go func() {
					defer wg.Done()
					in.Repo.Connect(bg)
				}()
			} else {
				logger.Info("auto-connect disabled, waiting for Connect")
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			in.Service.Shutdown()
			in.Server.Stop(ctx)
			wg.Wait()

			in.Repo.Stop()
			if err := in.Socket.Close(); err != nil {
				logger.Warn("error closing transport", zap.Error(err))
			}
			if in.Prober != nil {
				in.Prober.Stop()
			}
			if in.Recorder != nil {
				in.Recorder.Stop()
			}
			if in.Journal != nil {
				if err := in.Journal.Close(); err != nil {
					logger.Warn("error closing journal", zap.Error(err))
				}
			}
			in.Bus.Close()
			if err := in.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped", zap.Int("pending", len(in.Repo.Pending())))
			_ = logger.Sync()
			return nil
		},
	})
}
