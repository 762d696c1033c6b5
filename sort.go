package adns

import (
	"net"
	"sort"

	"github.com/nandub/adns/internal/addrfam"
)

// sortAddrs reorders addrs in place by sortList rank, mirroring
// adns__sort_addresses: an address matching an earlier sortList entry
// sorts before one matching a later entry or none at all, and addresses
// tied on rank keep their relative (server-returned) order.
func sortAddrs(addrs []net.IP, sortList []addrfam.SortListEntry) {
	if len(sortList) == 0 || len(addrs) < 2 {
		return
	}
	rank := func(addr net.IP) int {
		for i, entry := range sortList {
			if addrfam.Matches(addr, entry) {
				return i
			}
		}
		return len(sortList)
	}
	sort.SliceStable(addrs, func(i, j int) bool {
		return rank(addrs[i]) < rank(addrs[j])
	})
}
