package common

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ParseJSON 解析 JSON 字符串到結構體，不允許多餘資料
func ParseJSON(data string, v interface{}) error {
	dec := json.NewDecoder(strings.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return err
		}
		return fmt.Errorf("unexpected extra JSON data")
	}
	return nil
}

var unquotedKeyPattern = regexp.MustCompile(`([{\[,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號
func QuoteJSONKeys(raw string) string {
	return unquotedKeyPattern.ReplaceAllString(raw, `$1"$2":`)
}

// ExtractJSONObject 從模型回應中擷取 JSON 物件：
// 去掉 ```json 圍欄，取第一個 { 到最後一個 }
func ExtractJSONObject(content string) string {
	txt := strings.TrimSpace(content)
	txt = strings.TrimPrefix(txt, "```json")
	txt = strings.TrimPrefix(txt, "```")
	txt = strings.TrimSuffix(txt, "```")
	txt = strings.TrimSpace(txt)
	if start, end := strings.Index(txt, "{"), strings.LastIndex(txt, "}"); start != -1 && end != -1 && end > start {
		txt = txt[start : end+1]
	}
	return txt
}

// ParseModelJSON 擷取並解析模型回應；第一次失敗時補上鍵的雙引號再試一次
func ParseModelJSON(content string, v interface{}) error {
	txt := ExtractJSONObject(content)
	if err := ParseJSON(txt, v); err != nil {
		if retryErr := ParseJSON(QuoteJSONKeys(txt), v); retryErr != nil {
			return fmt.Errorf("failed to parse model JSON: %w", err)
		}
	}
	return nil
}
