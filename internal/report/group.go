package report

import (
	"github.com/star/skywindow/internal/catalog"
	"github.com/star/skywindow/internal/lightpollution"
)

// SiteGroup is a site and the objects a user tracks from it.
type SiteGroup struct {
	Site    lightpollution.Site
	Objects []catalog.Object
}

// GroupBySite partitions observations by site id. Groups keep the order in
// which their site first appears and objects keep their input order; an
// object listed twice for the same site is kept once. The result shares no
// slices with obs.
func GroupBySite(obs []catalog.Observation) []SiteGroup {
	index := make(map[string]int)
	seen := make(map[[2]string]bool)
	var groups []SiteGroup

	for _, o := range obs {
		i, ok := index[o.Site.ID]
		if !ok {
			i = len(groups)
			index[o.Site.ID] = i
			groups = append(groups, SiteGroup{Site: o.Site})
		}
		key := [2]string{o.Site.ID, o.Object.ID}
		if seen[key] {
			continue
		}
		seen[key] = true
		groups[i].Objects = append(groups[i].Objects, o.Object)
	}
	return groups
}
