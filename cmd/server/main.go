package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"habit-tracker/api"
	"habit-tracker/app"
	"habit-tracker/config"
	"habit-tracker/handler"
)

var (
	configPath string
	addr       string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "habit-server",
	Short:         "HTTP API for the daily habit tracker",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func run(ctx context.Context) error {
	a, err := app.Open(ctx, configPath, func(c *config.Config) {
		if addr != "" {
			c.Server.Addr = addr
		}
		if verbose {
			c.Log.Level = "debug"
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	// 创建处理器
	h := handler.NewHandler(a.Store, a.Logger)

	// 设置路由
	mux := api.SetupRoutes(h, a.Logger)

	server := &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 优雅关闭
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("Server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-quit:
	}

	a.Logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("Server forced to shutdown", zap.Error(err))
		return server.Close()
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
