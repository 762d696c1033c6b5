package adns

import "strings"

// searchCandidates returns the full ordered list of names to try for an
// unqualified query, per spec §6: the bare name either first or last
// depending on ndots, followed by (or preceded by) each search suffix.
func searchCandidates(name string, search []string, ndots int) []string {
	if strings.HasSuffix(name, ".") {
		return []string{strings.TrimSuffix(name, ".")}
	}
	suffixed := make([]string, len(search))
	for i, s := range search {
		suffixed[i] = name + "." + s
	}
	if countDots(name) >= ndots || len(search) == 0 {
		return append([]string{name}, suffixed...)
	}
	return append(suffixed, name)
}

func countDots(name string) int {
	return strings.Count(strings.TrimSuffix(name, "."), ".")
}

// advanceSearchList moves qu to the next untried candidate in its
// search list after a negative result, per spec §4.5: "a negative
// result advances to the next suffix." Returns ("", false) once every
// candidate has been tried (or qu wasn't submitted with FlagSearch), so
// the caller delivers the final NXDOMAIN instead.
func (h *Handle) advanceSearchList(qu *Query) (string, bool) {
	if qu.searchIdx+1 >= len(qu.searchList) {
		return "", false
	}
	qu.searchIdx++
	return qu.searchList[qu.searchIdx], true
}
