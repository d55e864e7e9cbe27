// =============================================================================
// CricketFlow 主入口
// =============================================================================
// 板球问答服务：HTTP API、批量问答、统计库迁移与导入
//
// 使用方法:
//
//	cricketflow serve                        # 启动服务
//	cricketflow serve --config config.yaml   # 指定配置文件
//	cricketflow ask "Who won match 1082591?" # 单次问答
//	cricketflow batch -f questions.txt -c 4  # 批量问答，输出 JSON lines
//	cricketflow migrate up                   # 运行数据库迁移
//	cricketflow ingest --csv deliveries.csv  # 导入逐球数据
//	cricketflow version                      # 显示版本信息
//	cricketflow health                       # 健康检查
// =============================================================================

// @title CricketFlow API
// @version 1.0.0
// @description Cricket question answering with retrieval, grading and self-correction.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/cricketflow/config"
	"github.com/BaSui01/cricketflow/internal/metrics"
	"github.com/BaSui01/cricketflow/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = ""
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if Version != "" {
		telemetry.Version = Version
	}
	Version = telemetry.BuildVersion()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags 所有子命令共享的参数
type globalFlags struct {
	configPath string
	envFile    string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "cricketflow",
		Short:         "Cricket question answering agent",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file (YAML)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Path to .env file")

	root.AddCommand(
		serveCmd(flags),
		askCmd(flags),
		batchCmd(flags),
		migrateCmd(flags),
		ingestCmd(flags),
		versionCmd(),
		healthCmd(),
	)
	return root
}

// =============================================================================
// 🔧 公共初始化
// =============================================================================

// loadConfig 默认值 → YAML → .env → 环境变量 → 校验
func (f *globalFlags) loadConfig() (*config.Config, error) {
	loader := config.NewLoader().
		WithEnvFile(f.envFile).
		WithValidator((*config.Config).Validate)
	if f.configPath != "" {
		loader = loader.WithConfigPath(f.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// signalContext SIGINT/SIGTERM 时取消
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func serveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and metrics servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			logger.Info("Starting CricketFlow",
				zap.String("version", Version),
				zap.String("build_time", BuildTime),
				zap.String("git_commit", GitCommit),
			)

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
			if err != nil {
				logger.Warn("failed to initialize telemetry", zap.Error(err))
			} else {
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := otelProviders.Shutdown(shutdownCtx); err != nil {
						logger.Warn("telemetry shutdown failed", zap.Error(err))
					}
				}()
			}

			collector := metrics.NewCollector("cricketflow", logger)
			app, err := NewApp(ctx, cfg, collector, logger)
			if err != nil {
				logger.Error("agent initialization failed, /ask disabled", zap.Error(err))
			}

			var srv *Server
			if app != nil {
				defer func() {
					if err := app.Close(); err != nil {
						logger.Warn("close components", zap.Error(err))
					}
				}()
				srv = NewServer(cfg, app.Orchestrator(), app.HealthChecks(), collector, logger)
			} else {
				srv = NewServer(cfg, nil, nil, collector, logger)
			}

			err = srv.Run(ctx)
			logger.Info("CricketFlow stopped")
			return err
		},
	}
}

// =============================================================================
// 🏥 health / version
// =============================================================================

func healthCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check readiness of a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/ready", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("health check failed: status %d", resp.StatusCode)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "http://localhost:8080", "Server address")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "CricketFlow %s\n", Version)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		},
	}
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
