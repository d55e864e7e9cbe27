// Package openai 基于 go-openai 实现 llm.Provider，兼容任何 OpenAI 协议的服务端。
package openai
