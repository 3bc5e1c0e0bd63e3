package physics

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
)

type proxy struct {
	body      *Body
	lo, hi    mgl64.Vec3
	footprint cp.BB // X -> L/R, Z -> B/T
}

type bodyPair struct {
	a, b *Body
}

// sweepAndPrune sorts proxies along X and only tests bodies whose X intervals
// overlap. Candidates must also overlap on the XZ footprint and in Y. Pairs where
// neither body is awake are dropped. The result is ordered by handle so the solver
// visits contacts in the same order on every run.
type sweepAndPrune struct {
	proxies []proxy
	active  []int
	pairs   []bodyPair
}

func (s *sweepAndPrune) update(bodies []*Body) []bodyPair {
	s.proxies = s.proxies[:0]
	for _, b := range bodies {
		lo, hi := b.AABB()
		s.proxies = append(s.proxies, proxy{
			body:      b,
			lo:        lo,
			hi:        hi,
			footprint: cp.BB{L: lo[0], B: lo[2], R: hi[0], T: hi[2]},
		})
	}
	sort.Slice(s.proxies, func(i, j int) bool {
		pi, pj := s.proxies[i], s.proxies[j]
		if pi.lo[0] != pj.lo[0] {
			return pi.lo[0] < pj.lo[0]
		}
		return pi.body.handle < pj.body.handle
	})

	s.pairs = s.pairs[:0]
	s.active = s.active[:0]
	for i := range s.proxies {
		p := &s.proxies[i]
		kept := s.active[:0]
		for _, j := range s.active {
			if s.proxies[j].hi[0] >= p.lo[0] {
				kept = append(kept, j)
			}
		}
		s.active = kept

		for _, j := range s.active {
			q := &s.proxies[j]
			if !p.body.simulated() && !q.body.simulated() {
				continue
			}
			if !p.footprint.Intersects(q.footprint) {
				continue
			}
			if p.hi[1] < q.lo[1] || q.hi[1] < p.lo[1] {
				continue
			}
			a, b := p.body, q.body
			if b.handle < a.handle {
				a, b = b, a
			}
			s.pairs = append(s.pairs, bodyPair{a: a, b: b})
		}
		s.active = append(s.active, i)
	}

	sort.Slice(s.pairs, func(i, j int) bool {
		if s.pairs[i].a.handle != s.pairs[j].a.handle {
			return s.pairs[i].a.handle < s.pairs[j].a.handle
		}
		return s.pairs[i].b.handle < s.pairs[j].b.handle
	})
	return s.pairs
}

// terrainCandidates returns simulated bodies whose bounds reach the terrain's footprint
// and top, in handle order.
func terrainCandidates(t *TerrainShape, bodies []*Body, out []*Body) []*Body {
	out = out[:0]
	if t == nil {
		return out
	}
	for _, b := range bodies {
		if !b.simulated() {
			continue
		}
		lo, hi := b.AABB()
		if lo[1] > t.maxY {
			continue
		}
		if !t.footprint.Intersects(cp.BB{L: lo[0], B: lo[2], R: hi[0], T: hi[2]}) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].handle < out[j].handle })
	return out
}
