// Copyright 2025-2026 CricketFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

Package sources 提供问答编排使用的四类证据来源适配器。每个适配器把外部
系统的响应转换为 rag.Evidence，错误原样返回，由编排层按"无证据"处理。

# 核心类型

  - StructuredProvider：LLM 生成 SQL，经 GuardSQL 校验后在只读事务中执行，
    结果格式化为一条 structured_query 证据
  - LiveStore：读取并监听实时比赛快照文件，渲染为一条 live_snapshot 证据
  - PathwaySearcher / WeaviateSearcher：语义检索，返回 semantic_search 段落
  - TavilySearcher：联网搜索，综合答案在前，可选 Redis 结果缓存与限流

# SQL 校验

GuardSQL 只放行以 SELECT 或 WITH 开头、引用 deliveries 表的单条语句。
字符串字面量中的关键字不参与判断；注释与多语句一律拒绝。

所有出站 HTTP 请求使用 tlsutil.SecureHTTPClient。
*/
package sources
