// 版权所有 2024 CricketFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖 HTTP、LLM 调用、
问答 Episode、证据来源与分类/评分判定。

# 核心类型

  - Collector：指标收集器，通过 promauto 注册到默认 Registry，
    按 namespace 隔离。同时满足 llm.Recorder、rag.VerdictRecorder
    与 workflow.Recorder 三个接口。

# 主要能力

  - HTTP 指标：请求总数、耗时、请求/响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - LLM 指标：请求总数、耗时与 Token 用量，按 provider/model 分组。
  - Episode 指标：结局计数（useful、verification_exhausted、
    step_budget_exhausted、failed）、耗时与步数分布、状态转换计数。
  - 证据指标：live、structured、semantic、web 各来源的调用结果与耗时。
  - 数据库连接池：RegisterDBStats 挂载 collectors.NewDBStatsCollector。
*/
package metrics
