package usecases

import "sync"

const fillStripes = 64

type fillStripe struct {
	mu  sync.Mutex
	gen uint64
}

// fillGuard orders cache fills against writes to the same id. A write bumps
// the id's generation and drops the cached copy under the stripe lock; a
// fill only stores a row if the generation it observed before reading the
// repository is still current.
type fillGuard struct {
	stripes [fillStripes]fillStripe
}

func (g *fillGuard) stripe(id int64) *fillStripe {
	return &g.stripes[uint64(id)%fillStripes]
}

// generation returns the current write generation for id.
func (g *fillGuard) generation(id int64) uint64 {
	st := g.stripe(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.gen
}

// fill runs store unless a write to id's stripe happened after gen was
// taken. It reports whether store ran.
func (g *fillGuard) fill(id int64, gen uint64, store func()) bool {
	st := g.stripe(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.gen != gen {
		return false
	}
	store()
	return true
}

// invalidate bumps id's generation and runs drop while holding the stripe.
func (g *fillGuard) invalidate(id int64, drop func()) {
	st := g.stripe(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.gen++
	drop()
}
