package rag

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedVerdict LLM 判定输出不符合 {"binary_score": "yes"|"no"} 约定
var ErrMalformedVerdict = errors.New("malformed verdict")

// RelevanceVerdict 二元判定结果
type RelevanceVerdict struct {
	IsRelevant  bool   `json:"is_relevant"`
	Explanation string `json:"explanation,omitempty"`
}

// QualityVerdict 答案质量判定。Grounded 仅在 GroundednessChecked 时有意义。
type QualityVerdict struct {
	Grounded            bool `json:"grounded"`
	GroundednessChecked bool `json:"groundedness_checked"`
	AddressesQuestion   bool `json:"addresses_question"`
	AnswerChecked       bool `json:"answer_checked"`
}

type verdictPayload struct {
	BinaryScore string `json:"binary_score" validate:"required,oneof=yes no"`
	Explanation string `json:"explanation"`
}

var verdictValidate = validator.New()

// ParseVerdict 严格解析判定 JSON。允许外层 markdown 代码块，其余格式一律视为错误。
func ParseVerdict(raw string) (RelevanceVerdict, error) {
	body := stripCodeFence(strings.TrimSpace(raw))
	if body == "" {
		return RelevanceVerdict{}, fmt.Errorf("%w: empty output", ErrMalformedVerdict)
	}

	var p verdictPayload
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&p); err != nil {
		return RelevanceVerdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	// 只允许单个 JSON 对象
	if dec.More() {
		return RelevanceVerdict{}, fmt.Errorf("%w: trailing data", ErrMalformedVerdict)
	}

	p.BinaryScore = strings.ToLower(strings.TrimSpace(p.BinaryScore))
	if err := verdictValidate.Struct(p); err != nil {
		return RelevanceVerdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}

	return RelevanceVerdict{IsRelevant: p.BinaryScore == "yes", Explanation: p.Explanation}, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
