package sources

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrUnsafeQuery 生成的 SQL 未通过只读检查
var ErrUnsafeQuery = errors.New("unsafe query")

// forbiddenKeywords 出现在引号外即拒绝
var forbiddenKeywords = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "DROP": {}, "ALTER": {}, "CREATE": {},
	"TRUNCATE": {}, "GRANT": {}, "REVOKE": {}, "COPY": {}, "ATTACH": {}, "DETACH": {},
	"PRAGMA": {}, "CALL": {}, "EXEC": {}, "EXECUTE": {}, "MERGE": {}, "VACUUM": {},
	"SET": {}, "INTO": {}, "LOCK": {},
}

// RequiredTable 查询必须引用的表
const RequiredTable = "deliveries"

// CleanSQL 去除 markdown 代码块、首尾空白和末尾分号
func CleanSQL(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], " \t") {
			// 去掉语言标记，如 ```sql
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	return s
}

// GuardSQL 清理并校验 LLM 生成的 SQL，只放行引用 deliveries 的单条 SELECT/WITH 语句
func GuardSQL(raw string) (string, error) {
	query := CleanSQL(raw)
	if query == "" {
		return "", fmt.Errorf("%w: empty statement", ErrUnsafeQuery)
	}

	words, err := scanWords(query)
	if err != nil {
		return "", err
	}
	if len(words) == 0 {
		return "", fmt.Errorf("%w: no keywords", ErrUnsafeQuery)
	}

	if first := words[0]; first != "SELECT" && first != "WITH" {
		return "", fmt.Errorf("%w: statement starts with %s", ErrUnsafeQuery, first)
	}

	referencesTable := false
	for _, w := range words {
		if _, bad := forbiddenKeywords[w]; bad {
			return "", fmt.Errorf("%w: forbidden keyword %s", ErrUnsafeQuery, w)
		}
		if strings.EqualFold(w, RequiredTable) {
			referencesTable = true
		}
	}
	if !referencesTable {
		return "", fmt.Errorf("%w: table %s not referenced", ErrUnsafeQuery, RequiredTable)
	}

	return query, nil
}

// scanWords 提取引号外的标识符/关键字（大写），双引号标识符原样保留；
// 遇到注释或语句分隔符返回错误
func scanWords(query string) ([]string, error) {
	var (
		words []string
		rs    = []rune(query)
	)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case r == '\'':
			end, ok := skipQuoted(rs, i, '\'')
			if !ok {
				return nil, fmt.Errorf("%w: unterminated string literal", ErrUnsafeQuery)
			}
			i = end
		case r == '"' || r == '`':
			end, ok := skipQuoted(rs, i, r)
			if !ok {
				return nil, fmt.Errorf("%w: unterminated identifier", ErrUnsafeQuery)
			}
			words = append(words, string(rs[i+1:end-1]))
			i = end
		case r == '-' && i+1 < len(rs) && rs[i+1] == '-',
			r == '/' && i+1 < len(rs) && rs[i+1] == '*',
			r == '#':
			return nil, fmt.Errorf("%w: comments are not allowed", ErrUnsafeQuery)
		case r == ';':
			return nil, fmt.Errorf("%w: multiple statements", ErrUnsafeQuery)
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
				i++
			}
			words = append(words, strings.ToUpper(string(rs[start:i])))
		default:
			i++
		}
	}
	return words, nil
}

// skipQuoted 返回闭合引号之后的位置；连续两个引号视为转义
func skipQuoted(rs []rune, start int, quote rune) (int, bool) {
	for i := start + 1; i < len(rs); i++ {
		if rs[i] != quote {
			continue
		}
		if i+1 < len(rs) && rs[i+1] == quote {
			i++
			continue
		}
		return i + 1, true
	}
	return 0, false
}
