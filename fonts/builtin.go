package fonts

import (
	"fmt"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10bold"
	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// 内置字体族名。
const (
	BuiltinRegular = "GoRegular"
	BuiltinBold    = "GoBold"
	DisplayRegular = "LatinModernRoman"
	DisplayBold    = "LatinModernRoman-Bold"
)

var builtin = map[string][]byte{
	"go/regular":      goregular.TTF,
	"go/bold":         gobold.TTF,
	"lmroman/regular": lmroman10regular.TTF,
	"lmroman/bold":    lmroman10bold.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:go/regular" 或直接 "go/regular"。
func Load(name string) ([]byte, error) {
	key := strings.TrimPrefix(name, "embed:")
	data, ok := builtin[key]
	if !ok || len(data) == 0 {
		return nil, fmt.Errorf("读取内置字体 %s 失败: %w", key, ErrFontUnavailable)
	}
	return data, nil
}

// Builtin 返回保底字体配置：Go 字体，只覆盖拉丁文，UnicodeCapable 为 false。
func Builtin() Profile {
	p := Profile{
		NormalFamily:   BuiltinRegular,
		BoldFamily:     BuiltinBold,
		UnicodeCapable: false,
		Source:         "embed:go",
		Regular:        goregular.TTF,
		Bold:           gobold.TTF,
	}
	p.attachDisplay()
	p.glyphs = newGlyphSet(p.Regular)
	return p
}
