// Package tlsutil 为所有出站 HTTP 客户端（LLM、语义检索、联网搜索）提供统一的传输层配置：
// TLS 1.2 起步、仅 AEAD 密码套件、遵循 HTTP(S)_PROXY 环境变量。
package tlsutil
