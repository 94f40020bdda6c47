package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteDebugJSON 将布局结果输出为 JSON，便于排查分页与水印位置。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil {
		return nil
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化布局结果失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Summary 统计布局结果中的页数与元素数量，用于日志。
type Summary struct {
	Pages  int `json:"pages"`
	Texts  int `json:"texts"`
	Tables int `json:"tables"`
	Tiles  int `json:"tiles"`
}

// Summarize 返回 res 的统计信息。
func Summarize(res *Result) Summary {
	var s Summary
	if res == nil {
		return s
	}
	s.Pages = len(res.Pages)
	for _, p := range res.Pages {
		s.Texts += len(p.Texts)
		s.Tables += len(p.Tables)
		s.Tiles += len(p.Tiles)
	}
	return s
}
