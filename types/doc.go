// Copyright (c) CricketFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 cricketflow 全局共享的错误类型。

types 位于依赖图最底层，不引用任何内部包。Error / ErrorCode 携带
HTTP 状态码与 Retryable 标记，api/handlers 据此输出统一的错误响应，
llm 重试包装器据此决定是否重试。
*/
package types
