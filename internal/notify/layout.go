package notify

// Slot is one row of the small-box offset table.
type Slot struct {
	ID     int `json:"id"`
	Top    int `json:"top"`
	Height int `json:"height"`
}

// Packer computes vertical offsets for the small-box column. It is the only
// writer of the offset table; callers read copies through Table.
type Packer struct {
	topMargin     int
	gap           int
	defaultHeight int

	heights map[int]int
	offsets map[int]int
	table   []Slot
}

// NewPacker creates a Packer. The first box sits at topMargin and every
// following box sits gap pixels below the previous one.
func NewPacker(topMargin, gap, defaultHeight int) *Packer {
	return &Packer{
		topMargin:     topMargin,
		gap:           gap,
		defaultHeight: defaultHeight,
		heights:       make(map[int]int),
		offsets:       make(map[int]int),
	}
}

// SetMetrics replaces the margins. The next Recompute uses them.
func (p *Packer) SetMetrics(topMargin, gap, defaultHeight int) {
	p.topMargin = topMargin
	p.gap = gap
	p.defaultHeight = defaultHeight
}

// SetHeight records the rendered height of box id and reports whether it
// differs from what the packer knew.
func (p *Packer) SetHeight(id, height int) bool {
	if height < 0 {
		height = 0
	}
	prev, known := p.heights[id]
	p.heights[id] = height
	if known {
		return prev != height
	}
	return height != p.defaultHeight
}

// Forget drops everything known about box id.
func (p *Packer) Forget(id int) {
	delete(p.heights, id)
	delete(p.offsets, id)
}

// Height returns the known height of box id, or the default height.
func (p *Packer) Height(id int) int {
	if h, ok := p.heights[id]; ok {
		return h
	}
	return p.defaultHeight
}

// Recompute assigns offsets to order, which must list the live small boxes
// in creation order. Calling it twice with the same input yields the same table.
func (p *Packer) Recompute(order []int) []Slot {
	table := make([]Slot, 0, len(order))
	offsets := make(map[int]int, len(order))

	top := p.topMargin
	for _, id := range order {
		h := p.Height(id)
		table = append(table, Slot{ID: id, Top: top, Height: h})
		offsets[id] = top
		top += h + p.gap
	}

	p.offsets = offsets
	p.table = table
	return p.Table()
}

// Next returns the offset a box appended to the last table would get.
func (p *Packer) Next() int {
	if len(p.table) == 0 {
		return p.topMargin
	}
	last := p.table[len(p.table)-1]
	return last.Top + last.Height + p.gap
}

// Offset returns the last computed offset for box id.
func (p *Packer) Offset(id int) (int, bool) {
	top, ok := p.offsets[id]
	return top, ok
}

// Table returns a copy of the last computed table.
func (p *Packer) Table() []Slot {
	return append([]Slot(nil), p.table...)
}
