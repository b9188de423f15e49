// internal/models/grading.go
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// QuizEntry 评分时提交的题目，字段宽松解析
// 测验数据可能来自启发式引擎、大模型或前端改写，字段缺失或类型不符时不报错，
// 由评分器按顺序回退解析。
type QuizEntry struct {
	IsObject    bool     // 是否为 JSON 对象
	Q           string   // 题干
	Options     []string // 选项（非字符串选项按文本处理）
	AnswerIndex *int     // 整数类型的 answer_index
	AnswerInt   *int     // 整数类型的 answer
	AnswerText  string   // answer_text 的文本形式
	Answer      string   // answer 的文本形式
}

// UnmarshalJSON 宽松解析单个题目
func (e *QuizEntry) UnmarshalJSON(data []byte) error {
	v, err := decodeLoose(data)
	if err != nil {
		return err
	}
	*e = QuizEntry{}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	e.IsObject = true
	e.Q = firstNonEmpty(stringify(obj["q"]), stringify(obj["question"]), stringify(obj["prompt"]))
	if opts, ok := obj["options"].([]interface{}); ok {
		e.Options = make([]string, 0, len(opts))
		for _, o := range opts {
			e.Options = append(e.Options, stringify(o))
		}
	}
	if n, ok := integer(obj["answer_index"]); ok {
		e.AnswerIndex = &n
	}
	if n, ok := integer(obj["answer"]); ok {
		e.AnswerInt = &n
	}
	e.AnswerText = stringify(obj["answer_text"])
	e.Answer = stringify(obj["answer"])
	return nil
}

// ObjectiveTarget 选择题的文本答案：answer_text 优先，其次 answer
func (e QuizEntry) ObjectiveTarget() string {
	return firstNonEmpty(e.AnswerText, e.Answer)
}

// Reference 简答题参考答案：answer 优先，其次 answer_text
func (e QuizEntry) Reference() string {
	if !e.IsObject {
		return ""
	}
	return firstNonEmpty(e.Answer, e.AnswerText)
}

// EntryFromObjective 由生成的选择题构造评分条目
func EntryFromObjective(q ObjectiveQuestion) QuizEntry {
	idx := q.AnswerIndex
	e := QuizEntry{
		IsObject:    true,
		Q:           q.Q,
		Options:     append([]string(nil), q.Options...),
		AnswerIndex: &idx,
	}
	if q.AnswerText != nil {
		e.AnswerText = *q.AnswerText
	}
	return e
}

// EntryFromSubjective 由生成的简答题构造评分条目
func EntryFromSubjective(q SubjectiveQuestion) QuizEntry {
	return QuizEntry{IsObject: true, Q: q.Q, Answer: q.Answer}
}

// Submission 用户提交的单个答案，可能是字符串、数字或 null
type Submission struct {
	Text     string
	IsString bool
}

// UnmarshalJSON 宽松解析答案
func (s *Submission) UnmarshalJSON(data []byte) error {
	v, err := decodeLoose(data)
	if err != nil {
		return err
	}
	*s = Submission{}
	if str, ok := v.(string); ok {
		s.Text = str
		s.IsString = true
		return nil
	}
	s.Text = stringify(v)
	return nil
}

// MarshalJSON 字符串答案原样输出，其余按文本输出
func (s Submission) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Text)
}

// TextSubmission 构造字符串答案
func TextSubmission(text string) Submission {
	return Submission{Text: text, IsString: true}
}

// ObjectiveResult 选择题单题评分结果
type ObjectiveResult struct {
	Index          int  `json:"i"`
	IsCorrect      bool `json:"correct"`
	SubmittedIndex int  `json:"your"`
	CorrectIndex   int  `json:"answer"`
}

// SubjectiveInfo 简答题评分细节
type SubjectiveInfo struct {
	Similarity      float64  `json:"similarity"`
	Keywords        []string `json:"keywords"`
	MatchedKeywords []string `json:"matched_keywords"`
	Coverage        float64  `json:"coverage"`
}

// SubjectiveResult 简答题单题评分结果
type SubjectiveResult struct {
	Index     int            `json:"i"`
	IsCorrect bool           `json:"correct"`
	Score     float64        `json:"score"` // 0-100，保留一位小数
	Info      SubjectiveInfo `json:"info"`
}

// GradeReport 整份测验的评分报告
type GradeReport[T any] struct {
	Score   float64 `json:"score"` // 0-100，保留两位小数
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Results []T     `json:"results"`
}

// -----------------------------------------

func decodeLoose(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// integer 仅接受整数字面量（1 可以，1.0 不行）
func integer(v interface{}) (int, bool) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if strings.ContainsAny(num.String(), ".eE") {
		return 0, false
	}
	n, err := strconv.Atoi(num.String())
	if err != nil {
		return 0, false
	}
	return n, true
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
