// Copyright (c) CricketFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 CricketFlow 程序入口。

# 子命令

  - serve   ：HTTP API（/ask、/ws/ask、健康检查）与独立端口的 /metrics
  - ask     ：单次问答，--json 输出完整响应
  - batch   ：按行读取问题，errgroup 并发回答，按输入顺序输出 JSON lines
  - migrate ：deliveries 表结构迁移（up、down、status、version 等）
  - ingest  ：导入逐球 CSV，表非空时跳过，--truncate 强制重载
  - version、health

# 中间件链

Recovery → RequestID → OTelTracing → Metrics → SecurityHeaders →
RequestLogger → CORS → RateLimiter（按 IP）→ Auth（X-API-Key 或 Bearer JWT）

# 装配

App 按配置构造编排器。统计库、实时快照、语义检索、联网搜索与 Redis 缓存
均为可选依赖，缺失时对应数据源不参与检索。Version、BuildTime、GitCommit
通过 ldflags 注入。
*/
package main
