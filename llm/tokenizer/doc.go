// Package tokenizer 提供生成上下文预算所需的 token 计数。
package tokenizer
