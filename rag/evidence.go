package rag

import "strings"

// Source 证据来源标签
type Source string

const (
	SourceStructuredQuery Source = "structured_query"
	SourceLiveSnapshot    Source = "live_snapshot"
	SourceSemanticSearch  Source = "semantic_search"
	SourceWebSearch       Source = "web_search"
)

// Privileged 特权来源按构造即视为相关，不参与文档评分
func (s Source) Privileged() bool {
	switch s {
	case SourceStructuredQuery, SourceLiveSnapshot, SourceWebSearch:
		return true
	default:
		return false
	}
}

// Evidence 一条检索证据
type Evidence struct {
	Content  string         `json:"content"`
	Source   Source         `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Privileged 是否来自特权来源
func (e Evidence) Privileged() bool { return e.Source.Privileged() }

// HasPrivileged 集合中是否存在特权证据
func HasPrivileged(items []Evidence) bool {
	for _, it := range items {
		if it.Privileged() {
			return true
		}
	}
	return false
}

// JoinContents 以空行拼接非空内容
func JoinContents(items []Evidence) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Content) == "" {
			continue
		}
		parts = append(parts, it.Content)
	}
	return strings.Join(parts, "\n\n")
}

// NormalizeQuestion 小写并折叠空白，作为问题级缓存的键
func NormalizeQuestion(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}

// Sources 返回各条证据的来源，顺序与输入一致
func Sources(items []Evidence) []Source {
	out := make([]Source, len(items))
	for i, it := range items {
		out[i] = it.Source
	}
	return out
}

// WebSearchResults 一次 Web 搜索的证据与原始响应（仅用于诊断）
type WebSearchResults struct {
	Query    string     `json:"query"`
	Answer   string     `json:"answer,omitempty"`
	Evidence []Evidence `json:"evidence"`
	Raw      any        `json:"raw,omitempty"`
}
