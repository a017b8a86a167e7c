package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cmlabs-hris/hris-portal-go/internal/config"
	sessionDomain "github.com/cmlabs-hris/hris-portal-go/internal/domain/session"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/api"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/events"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/storage"
	deviceService "github.com/cmlabs-hris/hris-portal-go/internal/service/device"
	leaveService "github.com/cmlabs-hris/hris-portal-go/internal/service/leave"
	sessionService "github.com/cmlabs-hris/hris-portal-go/internal/service/session"
)

// consoleNavigator stands in for the browser history API: it tracks the
// current route and logs transitions.
type consoleNavigator struct {
	logger  *slog.Logger
	current string
}

func (n *consoleNavigator) Navigate(route string) {
	n.current = route
	n.logger.Info("navigated", "route", route)
}

func (n *consoleNavigator) Current() string {
	return n.current
}

// consoleConfirmer asks destructive-action confirmations on stdin.
type consoleConfirmer struct {
	in *bufio.Reader
}

func (c *consoleConfirmer) Confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.App.LogLevel),
	})).With(
		slog.String("app", "hris-portal"),
		slog.String("env", cfg.App.Env),
	)

	var store storage.Storage
	switch cfg.Storage.Type {
	case "file":
		store, err = storage.NewFileStorage(filepath.Join(cfg.Storage.Path, "session.json"))
		if err != nil {
			log.Fatal("Failed to initialize file storage: ", err)
		}
	case "sqlite":
		store, err = storage.NewSQLiteStorage(filepath.Join(cfg.Storage.Path, "session.db"))
		if err != nil {
			log.Fatal("Failed to initialize sqlite storage: ", err)
		}
	default:
		log.Fatal("Unsupported storage type: ", cfg.Storage.Type)
	}
	defer store.Close()

	client := api.New(cfg.API.BaseURL, cfg.API.Timeout, api.NewStorageTokenSource(store), logger)

	nav := &consoleNavigator{logger: logger, current: sessionDomain.RouteLogin}
	confirm := &consoleConfirmer{in: bufio.NewReader(os.Stdin)}

	sessionStore := sessionService.NewStore(client, store, nav, logger)
	registry := deviceService.NewRegistry(client, store, confirm, cfg.Session.PollInterval, logger)
	calculator := leaveService.NewCalculator(client, cfg.Session.DebounceQuiet, logger)
	checker := leaveService.NewAvailabilityChecker(client, logger)
	leaves := leaveService.NewService(client, calculator, checker, confirm, logger)

	ctx := context.Background()
	if err := sessionStore.Restore(ctx); err != nil {
		logger.Warn("session restore failed", "error", err)
	}

	if sessionStore.Snapshot().IsAuthenticated() {
		registry.Start()
		defer registry.Stop()
		if _, err := leaves.MyRequests(ctx); err != nil {
			logger.Warn("leave list fetch failed", "error", err)
		}
	}

	var listener *events.Listener
	if cfg.API.WSURL != "" {
		snap := sessionStore.Snapshot()
		if snap.IsAuthenticated() {
			listener = events.NewListener(cfg.API.WSURL+"/ws/events", snap.AccessToken, func(ev events.Event) {
				switch ev.Type {
				case events.TypeSessionRevoked:
					current, err := registry.DeviceID()
					if err == nil && ev.DeviceID == current {
						sessionStore.Logout(context.Background())
					}
				case events.TypeDeviceSessionsChanged:
					if _, err := registry.ListSessions(context.Background()); err != nil {
						logger.Warn("session list refresh failed", "error", err)
					}
				case events.TypeLeaveStatusChanged:
					if _, err := leaves.MyRequests(context.Background()); err != nil {
						logger.Warn("leave list refresh failed", "error", err)
					}
				}
			}, logger)
			if err := listener.Start(ctx); err != nil {
				logger.Warn("event listener unavailable, relying on polling", "error", err)
				listener = nil
			}
		}
	}

	logger.Info("portal core running", "api", cfg.API.BaseURL, "storage", cfg.Storage.Type)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if listener != nil {
		listener.Stop()
	}
	calculator.Stop()
	logger.Info("portal core stopped")
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
