package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// MalformedError 模型输出无法按约定解析
type MalformedError struct {
	Raw string
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return model.ErrMalformed }

// CleanJSON 去掉 markdown 代码块标记并截取最外层 JSON 对象
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

// DecodeStrict 严格解析：必须包含 required 中的全部键，且不允许未知字段
func DecodeStrict(raw string, v any, required ...string) error {
	clean := CleanJSON(raw)

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(clean), &keys); err != nil {
		return &MalformedError{Raw: raw, Err: err}
	}
	for _, k := range required {
		if _, ok := keys[k]; !ok {
			return &MalformedError{Raw: raw, Err: fmt.Errorf("missing key %q", k)}
		}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &MalformedError{Raw: raw, Err: err}
	}
	return nil
}

// DecodeLoose 宽松解析，仅容忍代码块包裹
func DecodeLoose(raw string, v any) error {
	if err := json.Unmarshal([]byte(CleanJSON(raw)), v); err != nil {
		return &MalformedError{Raw: raw, Err: err}
	}
	return nil
}
