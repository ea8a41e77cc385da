package inspection

// Catalogue is the fixed, ordered set of sites known to the service.
type Catalogue struct {
	sites []Site
	index map[SiteID]int
}

func NewCatalogue(sites []Site) *Catalogue {
	c := &Catalogue{
		sites: make([]Site, len(sites)),
		index: make(map[SiteID]int, len(sites)),
	}
	copy(c.sites, sites)
	for i, s := range c.sites {
		c.index[s.ID] = i
	}
	return c
}

// Sites returns the sites in configured order.
func (c *Catalogue) Sites() []Site {
	out := make([]Site, len(c.sites))
	copy(out, c.sites)
	return out
}

func (c *Catalogue) Lookup(id SiteID) (Site, bool) {
	i, ok := c.index[id]
	if !ok {
		return Site{}, false
	}
	return c.sites[i], true
}

// Default is the site a new session starts on.
func (c *Catalogue) Default() (Site, bool) {
	if len(c.sites) == 0 {
		return Site{}, false
	}
	return c.sites[0], true
}
