package renderer

import "github.com/ByLCY/notepdf/layout"

// Renderer 将布局结果输出为最终文件，例如 PDF。
// Render 返回生成的二进制数据（例如 PDF 字节切片）以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// Backend 同时提供排版与渲染，布局阶段用它测量文字。
type Backend interface {
	Renderer
	layout.Typesetter
}
