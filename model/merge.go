package model

// Merge concatenates the article lists in the given order and drops every
// article whose normalized URL was already seen. The first occurrence wins.
// It returns the deduplicated list and the number of dropped duplicates.
func Merge(lists ...[]Article) ([]Article, int) {
	total := 0
	for _, l := range lists {
		total += len(l)
	}

	out := make([]Article, 0, total)
	seen := make(map[string]struct{}, total)
	for _, l := range lists {
		for _, a := range l {
			key := a.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, a)
		}
	}
	return out, total - len(out)
}
