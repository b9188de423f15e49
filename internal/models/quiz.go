// internal/models/quiz.go
package models

import (
	"encoding/json"
	"strings"
)

// QuestionType 题目类型
type QuestionType string

const (
	QuestionObjective  QuestionType = "objective"  // 单选填空题
	QuestionSubjective QuestionType = "subjective" // 简答题
)

// ParseQuestionType 除 "objective" 外一律按简答题处理
func ParseQuestionType(s string) QuestionType {
	if strings.TrimSpace(strings.ToLower(s)) == string(QuestionObjective) {
		return QuestionObjective
	}
	return QuestionSubjective
}

// ObjectiveQuestion 表示一道四选一填空题
// AnswerIndex 为 -1 表示无法确定正确答案（不可评分，但仍可展示）
type ObjectiveQuestion struct {
	Q           string   `json:"q"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	AnswerText  *string  `json:"answer_text"`
}

// Scorable 是否存在可评分的正确答案
func (q ObjectiveQuestion) Scorable() bool {
	return q.AnswerIndex >= 0 && q.AnswerIndex < len(q.Options)
}

// SubjectiveQuestion 表示一道简答题
type SubjectiveQuestion struct {
	Q      string `json:"q"`
	Answer string `json:"answer"` // 参考答案
}

// Quiz 一次请求生成的测验，题目类型统一
type Quiz struct {
	Type       QuestionType
	Objective  []ObjectiveQuestion
	Subjective []SubjectiveQuestion
}

// Len 返回题目数量
func (q Quiz) Len() int {
	if q.Type == QuestionObjective {
		return len(q.Objective)
	}
	return len(q.Subjective)
}

// Unscorable 无法确定正确答案的选择题数量
func (q Quiz) Unscorable() int {
	n := 0
	for _, o := range q.Objective {
		if !o.Scorable() {
			n++
		}
	}
	return n
}

// MarshalJSON 序列化为题目数组
func (q Quiz) MarshalJSON() ([]byte, error) {
	if q.Type == QuestionObjective {
		if q.Objective == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(q.Objective)
	}
	if q.Subjective == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(q.Subjective)
}

// PlaceholderObjective 题源不足时的填充题
func PlaceholderObjective() ObjectiveQuestion {
	answer := "A"
	return ObjectiveQuestion{
		Q:           "Placeholder question",
		Options:     []string{"A", "B", "C", "D"},
		AnswerIndex: 0,
		AnswerText:  &answer,
	}
}

// PlaceholderSubjective 题源不足时的填充简答题
func PlaceholderSubjective() SubjectiveQuestion {
	return SubjectiveQuestion{Q: "Describe briefly ...", Answer: ""}
}
