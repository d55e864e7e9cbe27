/*
包 cache 提供基于 Redis 的短期结果缓存，当前用于联网搜索结果去重。

# 概述

Manager 封装 go-redis 客户端，负责连接建立、后台健康检查与关闭。
同一问题在 TTL 内重复触发 WEB_SEARCH 时直接命中缓存，不再消耗
搜索配额。Redis 未配置时调用方不创建 Manager，搜索照常进行。

# 核心类型

  - Manager：Get/Set/Delete 以及 GetJSON/SetJSON 序列化读写。
  - Config：地址、连接池、默认 TTL、键前缀与健康检查间隔。
    ConfigFrom 从全局 config.RedisConfig 派生。
  - Stats：本进程命中/未命中计数与 Redis 键数量。

# 错误语义

未命中返回 ErrCacheMiss，可用 errors.Is 或 IsCacheMiss 判断。
Close 之后的调用返回 ErrClosed。
*/
package cache
