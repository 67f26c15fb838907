package matching

import "github.com/mohammad-safakhou/prizm/models"

// Reconcile orders candidates by the oracle's ids. Matched candidates come first
// in id order; unknown and repeated ids are ignored; every candidate the oracle
// did not name follows in its original position. The result is always a
// permutation of candidates. The second return is the number of matched candidates.
func Reconcile(ids []int, candidates []models.Business) ([]models.Business, int) {
	byID := make(map[int]int, len(candidates))
	for i, c := range candidates {
		if _, dup := byID[c.ID]; !dup {
			byID[c.ID] = i
		}
	}

	out := make([]models.Business, 0, len(candidates))
	used := make([]bool, len(candidates))
	for _, id := range ids {
		i, ok := byID[id]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		out = append(out, candidates[i])
	}
	matched := len(out)
	for i, c := range candidates {
		if !used[i] {
			out = append(out, c)
		}
	}
	return out, matched
}
