package detection

import "sort"

// Shelf is a shelf line estimated from the observations resting on it.
type Shelf struct {
	// Level counts shelves from the top of the photo, starting at 0.
	Level int `json:"level"`

	// Baseline is the estimated Y of the shelf edge: the mean top of the
	// boxes on the shelf plus their mean height.
	Baseline float64 `json:"baseline"`

	// Observations holds indices into the slice given to EstimateShelves.
	Observations []int `json:"observations"`
}

// EstimateShelves groups observations into shelves and estimates each
// shelf's baseline in photo coordinates.
//
// Observations are taken in order of their box bottom. An observation joins
// the current shelf while its bottom lies within half the shelf's mean box
// height of the shelf's mean bottom; otherwise it starts the next shelf down.
// Shelves whose baseline is not positive are dropped.
func EstimateShelves(obs []Observation) []Shelf {
	order := make([]int, len(obs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return obs[order[a]].Box().Bottom() < obs[order[b]].Box().Bottom()
	})

	type group struct {
		members             []int
		sumY, sumH, sumBott float64
	}
	var groups []*group
	var cur *group
	for _, i := range order {
		b := obs[i].Box()
		if cur != nil {
			n := float64(len(cur.members))
			if b.Bottom()-cur.sumBott/n > cur.sumH/n/2 {
				cur = nil
			}
		}
		if cur == nil {
			cur = &group{}
			groups = append(groups, cur)
		}
		cur.members = append(cur.members, i)
		cur.sumY += b.Y
		cur.sumH += b.Height
		cur.sumBott += b.Bottom()
	}

	shelves := make([]Shelf, 0, len(groups))
	for _, g := range groups {
		n := float64(len(g.members))
		baseline := g.sumY/n + g.sumH/n
		if baseline <= 0 {
			continue
		}
		members := append([]int(nil), g.members...)
		sort.Ints(members)
		shelves = append(shelves, Shelf{
			Level:        len(shelves),
			Baseline:     baseline,
			Observations: members,
		})
	}
	return shelves
}
