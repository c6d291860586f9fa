package shopping

// Layout positions shopping list lines on a page. Coordinates are in points
// measured from the top-left corner.
type Layout struct {
	X          float64
	Top        float64
	LineHeight float64
	// Bottom is the first baseline that no longer fits on the page.
	Bottom   float64
	FontSize float64
}

// A4Layout mirrors the printed shopping list: 16pt text at x=100, the first
// baseline 800pt above the bottom edge and a 20pt bottom margin.
var A4Layout = Layout{
	X:          100,
	Top:        42,
	LineHeight: 20,
	Bottom:     822,
	FontSize:   16,
}

// usable reports whether lines placed with l advance down a page of
// positive height at a visible font size.
func (l Layout) usable() bool {
	return l.LineHeight > 0 && l.FontSize > 0 && l.Bottom > l.Top
}

// orDefault returns l, or A4Layout when l cannot place text.
func (l Layout) orDefault() Layout {
	if !l.usable() {
		return A4Layout
	}
	return l
}

// Capacity is the number of lines that fit on one page. It is zero when the
// line height is not positive.
func (l Layout) Capacity() int {
	if l.LineHeight <= 0 {
		return 0
	}
	n := 0
	for y := l.Top; y < l.Bottom; y += l.LineHeight {
		n++
	}
	return n
}

// PlacedLine is a line of text anchored at its baseline.
type PlacedLine struct {
	X    float64
	Y    float64
	Text string
}

type Page struct {
	Lines []PlacedLine
}

type pagerState int

const (
	stateNewPage pagerState = iota
	stateAccumulating
	statePageFull
	stateFinalized
)

// pager lays lines out top to bottom. A page is opened only when a line
// needs one, so the last page always carries text.
type pager struct {
	layout Layout
	state  pagerState
	y      float64
	pages  []Page
}

func newPager(layout Layout) *pager {
	return &pager{layout: layout, state: stateNewPage}
}

func (p *pager) write(text string) {
	switch p.state {
	case stateFinalized:
		panic("shopping: write after finalize")
	case stateNewPage, statePageFull:
		p.pages = append(p.pages, Page{})
		p.y = p.layout.Top
	}

	current := &p.pages[len(p.pages)-1]
	current.Lines = append(current.Lines, PlacedLine{X: p.layout.X, Y: p.y, Text: text})
	p.y += p.layout.LineHeight

	if p.y >= p.layout.Bottom {
		p.state = statePageFull
	} else {
		p.state = stateAccumulating
	}
}

func (p *pager) finalize() []Page {
	if len(p.pages) == 0 {
		p.pages = append(p.pages, Page{})
	}
	p.state = stateFinalized
	return p.pages
}

// Paginate splits the report's lines into pages. The result always holds at
// least one page. A layout that cannot place text is replaced by A4Layout.
func Paginate(layout Layout, report Report) []Page {
	p := newPager(layout.orDefault())
	for _, entry := range report.Entries {
		p.write(entry.String())
	}
	return p.finalize()
}
