package layout

import "math"

// TileOffset 是平铺水印的起始偏移，避免边缘的水印被裁掉一半。
const TileOffset = -50.0

// TileCount 返回长度为 axis 的边上需要的水印个数：ceil((axis+50)/(textWidth+spacing))。
func TileCount(axis, textWidth, spacing float64) int {
	step := textWidth + spacing
	if axis <= 0 || step <= 0 {
		return 0
	}
	return int(math.Ceil((axis - TileOffset) / step))
}

// watermarkTiles 生成四条边上的平铺水印与中心水印。
// 上下两行沿 x 方向排列；左右两列旋转 90° 后沿 y 方向排列。
func watermarkTiles(w Watermark, st TextStyle, textWidth float64, page Page) ([]Tile, *Tile) {
	if w.Text == "" {
		return nil, nil
	}
	base := Tile{
		Text:    w.Text,
		Font:    st.BoldFont,
		SizePt:  w.BorderSizePt,
		Color:   w.Color,
		Opacity: w.BorderOpacity,
	}
	if base.Font == "" {
		base.Font = st.Font
	}

	var tiles []Tile
	if w.BorderSizePt > 0 && w.BorderOpacity > 0 {
		top := page.Margin.Top / 2
		bottom := page.Height - page.Margin.Bottom/2
		n := TileCount(page.Width, textWidth, w.SpacingPt)
		for i := 0; i < n; i++ {
			x := TileOffset + float64(i)*(textWidth+w.SpacingPt)
			for _, y := range []float64{top, bottom} {
				t := base
				t.X, t.Y = x, y
				tiles = append(tiles, t)
			}
		}
		left := page.Margin.Left / 2
		right := page.Width - page.Margin.Right/2
		n = TileCount(page.Height, textWidth, w.SpacingPt)
		for i := 0; i < n; i++ {
			y := TileOffset + float64(i)*(textWidth+w.SpacingPt)
			for _, x := range []float64{left, right} {
				t := base
				t.X, t.Y, t.Angle = x, y, 90
				tiles = append(tiles, t)
			}
		}
	}

	var stamp *Tile
	if w.CenterSizePt > 0 && w.CenterOpacity > 0 {
		s := base
		s.X, s.Y = page.Width/2, page.Height/2
		s.SizePt = w.CenterSizePt
		s.Opacity = w.CenterOpacity
		s.Angle = w.CenterAngleDeg
		s.Align = "center"
		stamp = &s
	}
	return tiles, stamp
}
