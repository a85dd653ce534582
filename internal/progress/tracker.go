// Package progress maintains the two-level scan progress view: an overall
// counter plus one entry per address block, created lazily and removed the
// moment the block completes.
package progress

// Renderer receives display events from the Tracker. Rendering is
// observational only; scan correctness never depends on it.
type Renderer interface {
	Start(overallTotal int)
	BlockStarted(block string, total int)
	BlockAdvanced(block string, scanned, total int)
	BlockDone(block string)
	OverallAdvanced(scanned, total int)
	Report(line string)
	Stop()
}

type entry struct {
	scanned int
	total   int
}

// Tracker is the per-block progress state table. It is owned by the scan
// consumption loop and is not safe for concurrent use.
type Tracker struct {
	renderer Renderer
	totals   map[string]int

	overall      int
	overallTotal int
	active       map[string]*entry
	done         map[string]bool
	stopped      bool
}

// NewTracker builds a tracker over the precomputed per-block totals. The
// totals are sampled candidate counts, not theoretical block sizes.
func NewTracker(renderer Renderer, totals map[string]int, overallTotal int) *Tracker {
	t := &Tracker{
		renderer:     renderer,
		totals:       totals,
		overallTotal: overallTotal,
		active:       make(map[string]*entry),
		done:         make(map[string]bool),
	}
	renderer.Start(overallTotal)
	return t
}

// Observe records one probe result for block. The block's entry is created
// on its first result and removed exactly once, when its scanned count
// reaches its total. The overall counter advances on every result.
func (t *Tracker) Observe(block string) {
	if t.stopped {
		return
	}

	// A removed block is never resurrected; further results for it still
	// advance the overall counter.
	if t.done[block] {
		t.overall++
		t.renderer.OverallAdvanced(t.overall, t.overallTotal)
		return
	}

	e, ok := t.active[block]
	if !ok {
		e = &entry{total: t.totals[block]}
		t.active[block] = e
		t.renderer.BlockStarted(block, e.total)
	}

	e.scanned++
	t.overall++
	t.renderer.BlockAdvanced(block, e.scanned, e.total)
	t.renderer.OverallAdvanced(t.overall, t.overallTotal)

	if e.scanned == e.total {
		delete(t.active, block)
		t.done[block] = true
		t.renderer.BlockDone(block)
	}
}

// Report forwards a per-result status line to the renderer.
func (t *Tracker) Report(line string) {
	if t.stopped {
		return
	}
	t.renderer.Report(line)
}

// Overall returns the overall scanned count and total.
func (t *Tracker) Overall() (scanned, total int) {
	return t.overall, t.overallTotal
}

// Active returns the number of blocks currently tracked.
func (t *Tracker) Active() int {
	return len(t.active)
}

// Stop tears down every active entry and the renderer. It runs on every
// exit path (completed, aborted, cancelled) and is idempotent.
func (t *Tracker) Stop() {
	if t.stopped {
		return
	}
	t.stopped = true
	for block := range t.active {
		t.renderer.BlockDone(block)
		delete(t.active, block)
	}
	t.renderer.Stop()
}
