package app

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dshills/scenetx/internal/config"
	"github.com/dshills/scenetx/internal/engine/history"
	"github.com/dshills/scenetx/internal/event"
	"github.com/dshills/scenetx/internal/scene"
	"github.com/dshills/scenetx/internal/script"
)

// Options configures a Session.
type Options struct {
	// Config is the resolved configuration.
	Config config.Config

	// Logger receives session logs. Defaults to a logger built from
	// Config.Logging on stderr.
	Logger *Logger

	// Output receives script print output. Defaults to os.Stdout.
	Output io.Writer
}

// Stats is a snapshot of the session state.
type Stats struct {
	UndoCount int
	RedoCount int
	Entities  int
	Capacity  int
}

// ScriptResult is the payload of script.finished events.
type ScriptResult struct {
	Script    string
	Err       error
	UndoCount int
	RedoCount int
}

// Session is one editing session.
type Session struct {
	mu  sync.Mutex
	cfg config.Config

	logger *Logger
	ctx    *history.Context
	stack  *history.Stack
	editor *scene.Editor
	bus    *event.Bus
	host   *script.Host
	exec   *script.Executor

	watcher *config.Watcher

	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool
	closed  atomic.Bool
}

// NewSession wires a session from opts. Call Start before submitting work.
func NewSession(opts Options) (*Session, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, NewComponentError("config", "validate", err)
	}

	logger := opts.Logger
	if logger == nil {
		lc := DefaultLoggerConfig()
		lc.Level = ParseLogLevel(cfg.Logging.Level)
		logger = NewLogger(lc)
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	s := &Session{
		cfg:    cfg,
		logger: logger,
		ctx:    history.NewContext("session"),
		bus:    event.NewBus(),
		done:   make(chan struct{}),
	}

	bridge := event.NewHistoryBridge(s.bus, "history", func(err error) {
		s.logger.WithComponent("event").Warn("history listener failed: %v", err)
	})
	s.stack = history.NewStack(
		history.WithCapacity(cfg.History.Capacity),
		history.WithOwner(s.ctx),
		history.WithListener(bridge),
	)
	s.editor = scene.NewEditor(scene.New(), s.stack, s.ctx)
	s.host = script.NewHost(s.editor,
		script.WithTimeout(cfg.Script.Timeout.Std()),
		script.WithOutput(out),
	)
	s.exec = script.NewExecutor(cfg.Script.QueueSize)

	if err := s.subscribe(); err != nil {
		return nil, NewComponentError("event", "subscribe", err)
	}
	return s, nil
}

// subscribe attaches the session's own observers to the bus.
func (s *Session) subscribe() error {
	histLog := s.logger.WithComponent("history")
	_, err := s.bus.Subscribe("history.**", func(_ context.Context, ev event.Event) error {
		change, ok := ev.Payload.(event.HistoryChange)
		if !ok {
			return nil
		}
		switch {
		case change.Err != nil:
			histLog.Warn("%s %q failed: %v (undo=%d redo=%d)", change.Kind, change.Description, change.Err, change.UndoCount, change.RedoCount)
		case change.Kind == history.NotifyDiscarded:
			histLog.Debug("discarded %q (%s)", change.Description, change.Reason)
		case change.Kind == history.NotifyCleared:
			histLog.Debug("cleared")
		default:
			histLog.Debug("%s %q ops=%d undo=%d redo=%d", change.Kind, change.Description, change.Operations, change.UndoCount, change.RedoCount)
		}
		return nil
	}, event.WithPriority(event.PriorityLow))
	if err != nil {
		return err
	}

	cfgLog := s.logger.WithComponent("config")
	_, err = s.bus.Subscribe(event.TopicConfigReloaded, func(_ context.Context, ev event.Event) error {
		if cfg, ok := ev.Payload.(config.Config); ok {
			cfgLog.Info("reloaded: capacity=%d level=%s timeout=%s", cfg.History.Capacity, cfg.Logging.Level, cfg.Script.Timeout.Std())
		}
		return nil
	}, event.WithPriority(event.PriorityLow))
	return err
}

// Start launches the executor goroutine that owns the session.
func (s *Session) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go func() {
		defer close(s.done)
		s.exec.Run(runCtx)
	}()
	return nil
}

// Bus returns the session event bus.
func (s *Session) Bus() *event.Bus {
	return s.bus
}

// Logger returns the session logger.
func (s *Session) Logger() *Logger {
	return s.logger
}

// Config returns the configuration currently applied.
func (s *Session) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Do runs fn on the session goroutine with the scene editor.
func (s *Session) Do(ctx context.Context, fn func(ed *scene.Editor) error) error {
	if !s.running.Load() {
		return ErrNotRunning
	}
	return s.exec.Execute(ctx, func() error {
		return fn(s.editor)
	})
}

// RunScript runs the Lua file at path on the session goroutine.
func (s *Session) RunScript(ctx context.Context, path string) error {
	return s.run(ctx, path, func() error {
		return s.host.RunFile(ctx, path)
	})
}

// RunCode runs Lua source under the chunk name name.
func (s *Session) RunCode(ctx context.Context, name, code string) error {
	return s.run(ctx, name, func() error {
		return s.host.Run(ctx, name, code)
	})
}

func (s *Session) run(ctx context.Context, name string, fn func() error) error {
	if !s.running.Load() {
		return ErrNotRunning
	}
	log := s.logger.WithComponent("script").WithField("script", name)
	return s.exec.Execute(ctx, func() error {
		log.Debug("running")
		err := fn()
		result := ScriptResult{
			Script:    name,
			Err:       err,
			UndoCount: s.stack.UndoCount(),
			RedoCount: s.stack.RedoCount(),
		}
		if err != nil {
			log.Error("failed: %v", err)
		} else {
			log.Info("finished: undo=%d redo=%d", result.UndoCount, result.RedoCount)
		}
		if pubErr := s.bus.Publish(ctx, event.New(event.TopicScriptFinished, result, "script")); pubErr != nil {
			log.Warn("script.finished handler failed: %v", pubErr)
		}
		return err
	})
}

// Stats returns a snapshot taken on the session goroutine.
func (s *Session) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.Do(ctx, func(ed *scene.Editor) error {
		st = Stats{
			UndoCount: s.stack.UndoCount(),
			RedoCount: s.stack.RedoCount(),
			Entities:  ed.Scene().Len(),
			Capacity:  s.stack.Capacity(),
		}
		return nil
	})
	return st, err
}

// Apply switches the session to cfg on the session goroutine: history
// capacity (evicting the oldest transactions if it shrank), log level and
// script timeout.
func (s *Session) Apply(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return NewComponentError("config", "validate", err)
	}
	if !s.running.Load() {
		return ErrNotRunning
	}
	return s.exec.Execute(ctx, func() error {
		s.apply(ctx, cfg)
		return nil
	})
}

// apply must run on the session goroutine.
func (s *Session) apply(ctx context.Context, cfg config.Config) {
	if err := s.stack.SetCapacity(s.ctx, cfg.History.Capacity); err != nil {
		s.logger.WithComponent("history").Warn("set capacity: %v", err)
	}
	s.logger.SetLevel(ParseLogLevel(cfg.Logging.Level))
	s.host.SetTimeout(cfg.Script.Timeout.Std())

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	if err := s.bus.Publish(ctx, event.New(event.TopicConfigReloaded, cfg, "config")); err != nil {
		s.logger.WithComponent("config").Warn("config.reloaded handler failed: %v", err)
	}
}

// WatchConfig reloads path whenever it changes and applies the result.
// Invalid files are logged and ignored.
func (s *Session) WatchConfig(path string) error {
	if !s.running.Load() {
		return ErrNotRunning
	}
	log := s.logger.WithComponent("config")
	w, err := config.Watch(path, func(cfg config.Config, err error) {
		if err != nil {
			log.Warn("reload %s: %v", path, err)
			return
		}
		submitErr := s.exec.ExecuteAsync(func() error {
			s.apply(context.Background(), cfg)
			return nil
		}, nil)
		if submitErr != nil {
			log.Warn("reload %s: %v", path, submitErr)
		}
	})
	if err != nil {
		return NewComponentError("config", "watch", err)
	}

	s.mu.Lock()
	old := s.watcher
	s.watcher = w
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	log.Info("watching %s", w.Path())
	return nil
}

// Close stops the watcher and the executor, then releases the script host
// and the bus.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrSessionClosed
	}

	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}

	s.exec.Close()
	if s.running.Load() {
		s.cancel()
		<-s.done
	}
	s.host.Close()
	return s.bus.Close()
}
