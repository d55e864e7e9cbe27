package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RootStatus GET / 的固定响应
const RootStatus = "cricketflow agent API is running"

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// HealthHandler 健康检查处理器
type HealthHandler struct {
	logger  *zap.Logger
	checks  []HealthCheck
	timeout time.Duration
	mu      sync.RWMutex
}

// HealthCheck 健康检查接口
type HealthCheck interface {
	Name() string
	// Critical 为 false 的检查失败只会让状态降级为 degraded
	Critical() bool
	Check(ctx context.Context) error
}

// HealthStatus 健康状态响应
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "degraded", "unhealthy"
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status  string `json:"status"` // "pass", "fail"
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		logger:  logger.With(zap.String("component", "health")),
		timeout: 5 * time.Second,
	}
}

// RegisterCheck 注册健康检查
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleRoot 处理 GET /
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": RootStatus})
}

// HandleHealth 处理 /health 与 /healthz（存活探针，不执行依赖检查）
// @Summary 健康检查
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务正常"
// @Router /health [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// HandleReady 处理 /ready（就绪探针）。关键检查失败返回 503，非关键检查失败返回 200 + degraded
// @Summary 就绪检查
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务已就绪或降级"
// @Failure 503 {object} HealthStatus "服务尚未就绪"
// @Router /ready [get]
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	status := h.Evaluate(r.Context())
	code := http.StatusOK
	if status.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, status)
}

// Evaluate 并发执行全部检查并汇总状态，cricketflow health 命令复用
func (h *HealthHandler) Evaluate(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	type outcome struct {
		check   HealthCheck
		err     error
		latency time.Duration
	}
	results := make([]outcome, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := check.Check(ctx)
			results[i] = outcome{check: check, err: err, latency: time.Since(start)}
		}()
	}
	wg.Wait()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(results)),
	}
	for _, res := range results {
		result := CheckResult{Status: "pass", Latency: res.latency.String()}
		if res.err != nil {
			result.Status = "fail"
			result.Message = res.err.Error()
			h.logger.Warn("health check failed",
				zap.String("check", res.check.Name()),
				zap.Bool("critical", res.check.Critical()),
				zap.Error(res.err),
				zap.Duration("latency", res.latency),
			)
			switch {
			case res.check.Critical():
				status.Status = "unhealthy"
			case status.Status == "healthy":
				status.Status = "degraded"
			}
		}
		status.Checks[res.check.Name()] = result
	}
	return status
}

// HandleVersion 处理 /version 请求
// @Summary 版本信息
// @Tags 健康
// @Produce json
// @Success 200 {object} map[string]string "版本信息"
// @Router /version [get]
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, map[string]string{
			"version":    version,
			"build_time": buildTime,
			"git_commit": gitCommit,
		})
	}
}

// =============================================================================
// 🔧 内置健康检查实现
// =============================================================================

// FuncCheck 以函数实现的健康检查，用于数据库、Redis、实时数据等依赖
type FuncCheck struct {
	name     string
	critical bool
	fn       func(ctx context.Context) error
}

// NewFuncCheck 创建健康检查
func NewFuncCheck(name string, critical bool, fn func(ctx context.Context) error) *FuncCheck {
	return &FuncCheck{name: name, critical: critical, fn: fn}
}

func (c *FuncCheck) Name() string { return c.name }

func (c *FuncCheck) Critical() bool { return c.critical }

func (c *FuncCheck) Check(ctx context.Context) error { return c.fn(ctx) }
