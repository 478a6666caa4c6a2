package galaxy

import (
	"cmp"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"empires-server/internal/empire"
	"empires-server/internal/rng"
	"empires-server/internal/ruleset"
	"empires-server/internal/shared/errors"
)

type Generator struct {
	cfg    ruleset.Galaxy
	logger *slog.Logger
}

func NewGenerator(cfg ruleset.Galaxy, logger *slog.Logger) *Generator {
	return &Generator{cfg: cfg, logger: logger}
}

type point struct{ x, y float64 }

func dist(a, b point) float64 {
	return math.Hypot(a.x-b.x, a.y-b.y)
}

type pair struct {
	a, b int
	d    float64
}

// Generate builds the galaxy for a game. The result depends only on the
// arguments and the generator config.
func (g *Generator) Generate(gameID int64, empires []EmpireRef, seed uint64) (*Galaxy, error) {
	logger := g.logger.With("component", "galaxy_generator", "operation", "generate",
		"game_id", gameID, "empires", len(empires))
	logger.Debug("Generating galaxy")

	if len(empires) == 0 {
		return nil, errors.Validation("galaxy generation needs at least one empire")
	}
	seen := make(map[empire.ID]bool, len(empires))
	for _, e := range empires {
		if seen[e.ID] {
			return nil, errors.Validationf("duplicate empire id %d", e.ID)
		}
		seen[e.ID] = true
	}

	stream := rng.ForGalaxy(seed, gameID)
	n := g.regionCount(len(empires))
	points := g.placePoints(n, stream)
	regions := g.typeRegions(points)
	g.nameRegions(regions, stream)

	edges := g.connect(points)
	connections := g.typeConnections(edges, stream)
	wormholes := g.wormholes(points, edges, len(empires), stream)

	assignments, err := g.place(regions, empires, stream)
	if err != nil {
		logger.Error("Failed to place empires", "error", err)
		return nil, err
	}

	gal := &Galaxy{
		GameID:      gameID,
		Seed:        seed,
		Regions:     regions,
		Connections: connections,
		Wormholes:   wormholes,
		Assignments: assignments,
	}
	gal.Influence = g.influence(gal, points)

	logger.Info("Galaxy generated",
		"regions", len(regions),
		"connections", len(connections),
		"wormholes", len(wormholes))
	return gal, nil
}

func (g *Generator) regionCount(empires int) int {
	n := int(math.Ceil(float64(empires) / g.cfg.EmpiresPerRegion))
	return max(g.cfg.MinRegions, min(g.cfg.MaxRegions, n))
}

// placePoints scatters n points, retrying each up to the configured number of
// attempts to honour the minimum spacing and keeping the best candidate
// otherwise.
func (g *Generator) placePoints(n int, stream *rng.Stream) []point {
	points := make([]point, 0, n)
	attempts := max(1, g.cfg.PlacementAttempts)
	for range n {
		var best point
		bestDist := -1.0
		for range attempts {
			p := point{stream.Range(0, g.cfg.Width), stream.Range(0, g.cfg.Height)}
			d := math.Inf(1)
			for _, q := range points {
				d = min(d, dist(p, q))
			}
			if d > bestDist {
				best, bestDist = p, d
			}
			if d >= g.cfg.MinSpacing {
				break
			}
		}
		points = append(points, best)
	}
	return points
}

// typeRegions ranks regions by distance from the centre; the closest become
// core, then inner, outer and rim.
func (g *Generator) typeRegions(points []point) []Region {
	n := len(points)
	centre := point{g.cfg.Width / 2, g.cfg.Height / 2}
	rank := make([]int, n)
	for i := range rank {
		rank[i] = i
	}
	slices.SortStableFunc(rank, func(a, b int) int {
		return cmp.Compare(dist(points[a], centre), dist(points[b], centre))
	})

	coreN := min(n-1, int(math.Round(float64(n)*g.cfg.Shares.Core)))
	innerN := int(math.Round(float64(n) * g.cfg.Shares.Inner))
	outerN := int(math.Round(float64(n) * g.cfg.Shares.Outer))

	regions := make([]Region, n)
	for pos, idx := range rank {
		var t RegionType
		switch {
		case pos < coreN:
			t = RegionCore
		case pos < coreN+innerN:
			t = RegionInner
		case pos < coreN+innerN+outerN:
			t = RegionOuter
		default:
			t = RegionRim
		}
		regions[idx] = Region{
			ID:         int64(idx + 1),
			Type:       t,
			X:          points[idx].x,
			Y:          points[idx].y,
			MaxEmpires: g.cfg.Capacity[string(t)],
		}
	}
	return regions
}

func (g *Generator) nameRegions(regions []Region, stream *rng.Stream) {
	pool := make([]string, 0, len(g.cfg.Prefixes)*len(g.cfg.Suffixes))
	for _, p := range g.cfg.Prefixes {
		for _, s := range g.cfg.Suffixes {
			pool = append(pool, p+" "+s)
		}
	}
	stream.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	for i := range regions {
		name := pool[i%len(pool)]
		if round := i / len(pool); round > 0 {
			name = fmt.Sprintf("%s %d", name, round+1)
		}
		regions[i].Name = name
	}
}

func sortedPairs(points []point) []pair {
	var pairs []pair
	for a := range points {
		for b := a + 1; b < len(points); b++ {
			pairs = append(pairs, pair{a, b, dist(points[a], points[b])})
		}
	}
	slices.SortStableFunc(pairs, func(x, y pair) int {
		if c := cmp.Compare(x.d, y.d); c != 0 {
			return c
		}
		if c := cmp.Compare(x.a, y.a); c != 0 {
			return c
		}
		return cmp.Compare(x.b, y.b)
	})
	return pairs
}

// connect links every region to its nearest neighbours, then joins any
// remaining components through their closest pairs so the graph is connected.
func (g *Generator) connect(points []point) []pair {
	n := len(points)
	pairs := sortedPairs(points)
	chosen := make(map[[2]int]bool)

	for i := range n {
		taken := 0
		for _, p := range pairs {
			if taken >= g.cfg.Neighbors {
				break
			}
			if p.a != i && p.b != i {
				continue
			}
			chosen[[2]int{p.a, p.b}] = true
			taken++
		}
	}

	uf := newUnionFind(n)
	for key := range chosen {
		uf.union(key[0], key[1])
	}
	for _, p := range pairs {
		if uf.find(p.a) != uf.find(p.b) {
			chosen[[2]int{p.a, p.b}] = true
			uf.union(p.a, p.b)
		}
	}

	var edges []pair
	for _, p := range pairs {
		if chosen[[2]int{p.a, p.b}] {
			edges = append(edges, p)
		}
	}
	slices.SortFunc(edges, func(x, y pair) int {
		if c := cmp.Compare(x.a, y.a); c != 0 {
			return c
		}
		return cmp.Compare(x.b, y.b)
	})
	return edges
}

func (g *Generator) typeConnections(edges []pair, stream *rng.Stream) []Connection {
	weights := make([]float64, len(ruleset.ConnectionTypes))
	for i, t := range ruleset.ConnectionTypes {
		weights[i] = g.cfg.ConnectionWeights[t]
	}
	connections := make([]Connection, len(edges))
	for i, e := range edges {
		t := ConnectionAdjacent
		if k := stream.Pick(weights); k >= 0 {
			t = ConnectionType(ruleset.ConnectionTypes[k])
		}
		connections[i] = Connection{
			ID:        int64(i + 1),
			From:      int64(e.a + 1),
			To:        int64(e.b + 1),
			Type:      t,
			Modifiers: g.cfg.Modifiers[string(t)],
		}
	}
	return connections
}

func (g *Generator) wormholes(points []point, edges []pair, empires int, stream *rng.Stream) []Wormhole {
	wc := g.cfg.Wormholes
	count := int(math.Round(float64(empires) * wc.PerEmpire))
	count = max(wc.Min, min(wc.Max, count))

	linked := make(map[[2]int]bool, len(edges))
	for _, e := range edges {
		linked[[2]int{e.a, e.b}] = true
	}
	var candidates []pair
	for a := range points {
		for b := a + 1; b < len(points); b++ {
			d := dist(points[a], points[b])
			if !linked[[2]int{a, b}] && d >= wc.MinDistance {
				candidates = append(candidates, pair{a, b, d})
			}
		}
	}
	stream.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	chosen := candidates[:min(count, len(candidates))]
	slices.SortFunc(chosen, func(x, y pair) int {
		if c := cmp.Compare(x.a, y.a); c != 0 {
			return c
		}
		return cmp.Compare(x.b, y.b)
	})

	wormholes := make([]Wormhole, len(chosen))
	for i, p := range chosen {
		wormholes[i] = Wormhole{
			ID:        int64(i + 1),
			From:      int64(p.a + 1),
			To:        int64(p.b + 1),
			Modifiers: wc.Modifiers,
		}
	}
	return wormholes
}

// place assigns every empire a home region. Players are never placed in a
// core region. A full target falls back to the least populated eligible
// region.
func (g *Generator) place(regions []Region, empires []EmpireRef, stream *rng.Stream) ([]Assignment, error) {
	total := 0
	for _, r := range regions {
		total += r.MaxEmpires
	}
	for i := 0; total < len(empires); i = (i + 1) % len(regions) {
		regions[i].MaxEmpires++
		total++
	}

	ordered := slices.Clone(empires)
	slices.SortStableFunc(ordered, func(a, b EmpireRef) int {
		if (a.Type == empire.TypePlayer) != (b.Type == empire.TypePlayer) {
			if a.Type == empire.TypePlayer {
				return -1
			}
			return 1
		}
		return 0
	})

	occupancy := make(map[int64]int, len(regions))
	assignments := make([]Assignment, 0, len(empires))
	for _, e := range ordered {
		var eligible []*Region
		for i := range regions {
			if e.Type == empire.TypePlayer && regions[i].Type == RegionCore {
				continue
			}
			eligible = append(eligible, &regions[i])
		}
		if len(eligible) == 0 {
			return nil, errors.Preconditionf("no eligible region for empire %d", e.ID)
		}

		target := eligible[stream.IntN(len(eligible))]
		if occupancy[target.ID] >= target.MaxEmpires {
			target = nil
			for _, r := range eligible {
				if occupancy[r.ID] >= r.MaxEmpires {
					continue
				}
				if target == nil || occupancy[r.ID] < occupancy[target.ID] {
					target = r
				}
			}
		}
		if target == nil {
			return nil, errors.Preconditionf("no region has room for empire %d", e.ID)
		}
		occupancy[target.ID]++
		assignments = append(assignments, Assignment{EmpireID: e.ID, RegionID: target.ID})
	}

	slices.SortFunc(assignments, func(a, b Assignment) int { return cmp.Compare(a.EmpireID, b.EmpireID) })
	return assignments, nil
}

// influence seeds each empire with its home region plus the unoccupied
// neighbours within the influence radius.
func (g *Generator) influence(gal *Galaxy, points []point) []Influence {
	occupied := make(map[int64]bool, len(gal.Assignments))
	for _, a := range gal.Assignments {
		occupied[a.RegionID] = true
	}
	out := make([]Influence, 0, len(gal.Assignments))
	for _, a := range gal.Assignments {
		controlled := []int64{a.RegionID}
		home := points[a.RegionID-1]
		for _, c := range gal.Connections {
			var other int64
			switch a.RegionID {
			case c.From:
				other = c.To
			case c.To:
				other = c.From
			default:
				continue
			}
			if occupied[other] || dist(home, points[other-1]) > g.cfg.InfluenceRadius {
				continue
			}
			controlled = append(controlled, other)
		}
		slices.Sort(controlled)
		out = append(out, Influence{
			EmpireID:   a.EmpireID,
			HomeRegion: a.RegionID,
			Controlled: slices.Compact(controlled),
			Radius:     g.cfg.InfluenceRadius,
		})
	}
	return out
}

type unionFind struct{ parent []int }

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[max(ra, rb)] = min(ra, rb)
	}
}
