package track

import "math"

// assignInf stands in for infinity in the cost matrix: entries at or
// above this are treated as forbidden and never selected.
const assignInf = 1e18

// auctionEpsilon is the minimum bid increment. A strictly positive
// epsilon bounds how many rounds the auction can run before it settles
// (Bertsekas & Castañon), at the cost of at most dim*epsilon of
// aggregate suboptimality — negligible next to the Mahalanobis gate
// this solver runs under.
const auctionEpsilon = 1e-4

// hungarianAssign solves the rectangular minimum-cost assignment
// problem for an n×m cost matrix using the auction algorithm: every
// unassigned row bids on the column it values most, by the margin that
// column beats its runner-up, outbidding whichever row currently holds
// it. Rows keep re-entering the auction until each either holds a
// column or every column left open is forbidden. It returns
// assignments[i] = the column assigned to row i, or -1 if row i is
// unassigned. Cost entries at or above assignInf are never selected.
func hungarianAssign(cost [][]float32) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m == 0 {
		result := make([]int, n)
		for i := range result {
			result[i] = -1
		}
		return result
	}

	dim := n
	if m > dim {
		dim = m
	}

	// Square the problem with dummy rows/columns priced at -assignInf
	// benefit, so the auction always runs over a complete bipartite
	// graph; the real row/column bounds are reapplied when the result
	// is extracted below.
	benefit := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		benefit[i] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			c := assignInf
			if i < n && j < m {
				c = float64(cost[i][j])
			}
			benefit[i][j] = -c
		}
	}

	price := make([]float64, dim)
	holds := make([]int, dim) // holds[i] = column row i currently owns, or -1
	owner := make([]int, dim) // owner[j] = row currently owning column j, or -1
	for i := range holds {
		holds[i] = -1
		owner[i] = -1
	}

	unassigned := make([]int, dim)
	for i := range unassigned {
		unassigned[i] = i
	}

	// Every bid strictly raises some column's price, and prices are
	// bounded by the benefit range, so the auction terminates on its
	// own; the round cap only guards against that bound being violated
	// by float rounding on a pathological matrix.
	maxRounds := dim*dim + dim + 1

	for round := 0; len(unassigned) > 0 && round < maxRounds; round++ {
		i := unassigned[len(unassigned)-1]
		unassigned = unassigned[:len(unassigned)-1]

		best, second := -1, -1
		bestVal, secondVal := -math.MaxFloat64, -math.MaxFloat64
		for j := 0; j < dim; j++ {
			v := benefit[i][j] - price[j]
			switch {
			case v > bestVal:
				second, secondVal = best, bestVal
				best, bestVal = j, v
			case v > secondVal:
				second, secondVal = j, v
			}
		}
		if best < 0 {
			continue
		}

		margin := auctionEpsilon
		if second >= 0 {
			margin = bestVal - secondVal + auctionEpsilon
		}
		bid := price[best] + margin

		if prev := owner[best]; prev >= 0 {
			holds[prev] = -1
			unassigned = append(unassigned, prev)
		}
		owner[best] = i
		holds[i] = best
		price[best] = bid
	}

	result := make([]int, n)
	for i := 0; i < n; i++ {
		col := holds[i]
		if col < 0 || col >= m || cost[i][col] >= float32(assignInf) {
			result[i] = -1
		} else {
			result[i] = col
		}
	}
	return result
}
