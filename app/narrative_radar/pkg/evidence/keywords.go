package evidence

import (
	"strings"
	"unicode"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the and for are but not you all any can had her was one our out has him his how its may new now old see two way who did get let put say she too use that with this from they will have been were what when where which would there their about after again also being could does doing each into just more most only other over same some such than then them these those under very while your yours because before between during through itself myself should`) {
		stopWords[w] = struct{}{}
	}
}

// MaxKeywords 关键词提取的最大数量
const MaxKeywords = 6

// fallbackKeywordLength 提取不到关键词时截取原文的长度
const fallbackKeywordLength = 80

// alphaTokens 小写化后按非字母切分
func alphaTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// ExtractKeywords 提取前 6 个不重复、长度不少于 3 且不在停用词表中的字母词；
// 提取为空时回退到原文前 80 个字符
func ExtractKeywords(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tok := range alphaTokens(text) {
		if len([]rune(tok)) < 3 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) == MaxKeywords {
			break
		}
	}
	if len(out) == 0 {
		fallback := strings.TrimSpace(model.Truncate(text, fallbackKeywordLength))
		if fallback == "" {
			return nil
		}
		return []string{fallback}
	}
	return out
}

// QueryTokens 打分用的查询词：长度大于 2，不过滤停用词，保留重复
func QueryTokens(query string) []string {
	var out []string
	for _, tok := range alphaTokens(query) {
		if len([]rune(tok)) > 2 {
			out = append(out, tok)
		}
	}
	return out
}
