// Copyright (c) CricketFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 CricketFlow HTTP API 的请求处理器实现。

# 核心类型

  - AskHandler    ：POST /ask，一次回合返回 {answer, error}
  - StreamHandler ：GET /ws/ask，推送状态迁移帧后推送结果帧
  - HealthHandler ：GET /、/health、/healthz、/ready、/version
  - Response      ：非问答接口的统一 JSON 响应结构
  - ResponseWriter：捕获状态码与响应大小，供指标中间件使用

# 错误映射

*types.Error 按 ErrorCode 映射 HTTP 状态码：无效请求 400，编排器缺失 503，
未捕获的 panic 由中间件转换为 500。无法回答不是错误，仍返回 200。
*/
package handlers
