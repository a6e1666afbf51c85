package layout

// Vec2 is a normalized position on the panel, both axes in [0,1].
type Vec2 struct{ X, Y float64 }

// BuildLUT returns the normalized position of every wired address, so
// position based scenes can iterate the chain in physical order.
func BuildLUT(m *Mapper) []Vec2 {
	n := m.Count()
	out := make([]Vec2, n)
	for addr := 0; addr < n; addr++ {
		p, ok := m.Point(addr)
		if !ok {
			continue
		}
		out[addr] = Vec2{
			X: float64(p.Col) / float64(max(1, m.Cols()-1)),
			Y: float64(p.Row) / float64(max(1, m.Rows()-1)),
		}
	}
	return out
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
