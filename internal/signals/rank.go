package signals

import "sort"

// SortByZDesc orders n results descending by their baseline z-score. Rows
// without a qualifying z (guardrail not satisfied) rank after every row that
// has one; they are kept, not excluded. The sort is stable so ties and
// unscored rows retain their incoming relative order.
func SortByZDesc(n int, resultAt func(i int) Result, swap func(i, j int)) {
	sort.Stable(&zSorter{n: n, resultAt: resultAt, swap: swap})
}

type zSorter struct {
	n        int
	resultAt func(i int) Result
	swap     func(i, j int)
}

func (s *zSorter) Len() int      { return s.n }
func (s *zSorter) Swap(i, j int) { s.swap(i, j) }

func (s *zSorter) Less(i, j int) bool {
	zi, oki := s.resultAt(i).ZScore()
	zj, okj := s.resultAt(j).ZScore()
	if oki && okj {
		return zi > zj
	}
	// Scored rows sort before unscored rows.
	return oki && !okj
}
