package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"os/user"
	"syscall"
	"time"

	"github.com/dyluth/vigil/internal/auth"
	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/instance"
	"github.com/dyluth/vigil/internal/notify"
	"github.com/dyluth/vigil/internal/printer"
	"github.com/dyluth/vigil/internal/session"
	"github.com/dyluth/vigil/pkg/statusbus"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var lockLogFile string

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Run a lock session in this terminal",
	Long: `Take over the terminal, draw the status overlay and wait for the
account password. The command exits 0 once the password is accepted.

The terminal is switched to raw mode: Ctrl-C does not end the session.
SIGTERM and SIGHUP end it without unlocking and exit non-zero.

Logs are discarded unless --log-file is given, since the overlay owns the
screen.

Examples:
  # Lock with the default configuration
  vigil lock

  # Keep a log of the session
  vigil lock --log-file /tmp/vigil.log`,
	RunE: runLock,
}

func init() {
	lockCmd.Flags().StringVar(&lockLogFile, "log-file", "", "Write logs to this file")
	rootCmd.AddCommand(lockCmd)
}

func runLock(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	closeLog, err := redirectLog(lockLogFile)
	if err != nil {
		return printer.Error(
			"cannot open log file",
			err.Error(),
			[]string{"Choose a writable path:\n  vigil lock --log-file /tmp/vigil.log"},
		)
	}
	defer closeLog()

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return printer.Error(
			"stdin is not a terminal",
			"vigil lock reads the password from an interactive terminal.",
			[]string{"Run it directly in a terminal, not through a pipe."},
		)
	}

	username, err := authUser(cfg)
	if err != nil {
		return printer.Error(
			"cannot determine the account to unlock",
			err.Error(),
			[]string{"Set auth_user in the config file:\n  vigil config path"},
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	clock := clockwork.NewRealClock()
	home, _ := os.UserHomeDir()

	host := session.NewHostSources(cfg, afero.NewOsFs(), home, clock)
	defer host.Close()

	opts := session.Options{
		Config:        cfg,
		SessionID:     uuid.New().String(),
		Clock:         clock,
		Sources:       host.Sources,
		Checker:       auth.NewPAMChecker(username),
		Notifications: notify.NewListener(clock).Listen,
		Input:         os.Stdin,
		Output:        os.Stdout,
	}

	if cfg.StatusBus.RedisURL != "" {
		mirror, shutdown, err := startMirror(ctx, cfg.StatusBus)
		if err != nil {
			// The overlay still works without the bus
			log.Printf("[WARN] Status bus disabled: %v", err)
		} else {
			opts.Mirror = mirror
			defer shutdown()
		}
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to switch terminal to raw mode: %w", err)
	}

	err = session.Run(ctx, opts)

	_ = term.Restore(fd, oldState)
	fmt.Fprint(os.Stdout, "\x1b[H\x1b[2J")

	if errors.Is(err, session.ErrCancelled) {
		return printer.Error(
			"lock session ended without unlock",
			"The session was stopped by a signal.",
			nil,
		)
	}
	return err
}

// redirectLog sends the standard logger to path, or discards it.
func redirectLog(path string) (func(), error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(f)
	return func() { f.Close() }, nil
}

// authUser is auth_user from the config, else the current user.
func authUser(cfg *config.Config) (string, error) {
	if cfg.AuthUser != "" {
		return cfg.AuthUser, nil
	}
	if name := os.Getenv("USER"); name != "" {
		return name, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to look up current user: %w", err)
	}
	return u.Username, nil
}

// busInstance is the configured instance name, else one derived from the
// host name.
func busInstance(bus config.StatusBusConfig) (string, error) {
	host, err := os.Hostname()
	if err != nil {
		host = ""
	}
	return instance.Resolve(bus.Instance, host)
}

// startMirror connects to Redis and starts forwarding overlay events. The
// returned shutdown stops the mirror, flushes the final events and closes
// the connection.
func startMirror(ctx context.Context, bus config.StatusBusConfig) (*statusbus.Mirror, func(), error) {
	name, err := busInstance(bus)
	if err != nil {
		return nil, nil, err
	}
	client, err := statusbus.NewClientFromURL(bus.RedisURL, name)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, nil, err
	}

	mirror := statusbus.NewMirror(client, statusbus.DefaultMirrorBuffer)
	runCtx, stopRun := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		mirror.Run(runCtx)
	}()

	shutdown := func() {
		stopRun()
		<-done

		flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		mirror.Flush(flushCtx)

		published, dropped, failed := mirror.Stats()
		log.Printf("[INFO] Status bus: published=%d dropped=%d failed=%d", published, dropped, failed)
		client.Close()
	}
	return mirror, shutdown, nil
}
