package inspection

// SiteCaptures holds what has been captured for one site.
type SiteCaptures struct {
	Photos       map[Category]Image
	PlateNumbers map[Category]string
}

// CaptureStore keeps photos and recognized plate numbers per site.
//
// Entries are created lazily on first write; reading an unknown site or an
// unset category yields "absent" and never fails. Callers are expected to use
// the Category constants. The zero value is ready to use.
type CaptureStore struct {
	sites map[SiteID]*SiteCaptures
}

func (s *CaptureStore) site(id SiteID) *SiteCaptures {
	if s.sites == nil {
		s.sites = make(map[SiteID]*SiteCaptures)
	}
	sc, ok := s.sites[id]
	if !ok {
		sc = &SiteCaptures{
			Photos:       make(map[Category]Image),
			PlateNumbers: make(map[Category]string),
		}
		s.sites[id] = sc
	}
	return sc
}

// SetPhoto inserts or replaces the photo for (site, category).
func (s *CaptureStore) SetPhoto(site SiteID, category Category, img Image) {
	s.site(site).Photos[category] = img
}

// GetPhoto returns the photo for (site, category), if any.
func (s *CaptureStore) GetPhoto(site SiteID, category Category) (Image, bool) {
	sc, ok := s.sites[site]
	if !ok {
		return Image{}, false
	}
	img, ok := sc.Photos[category]
	return img, ok
}

// SetPlateNumber inserts or replaces the recognized plate for (site, category).
// Any string is accepted, including the empty string.
func (s *CaptureStore) SetPlateNumber(site SiteID, category Category, plate string) {
	s.site(site).PlateNumbers[category] = plate
}

// GetPlateNumber returns the recognized plate for (site, category), if any.
func (s *CaptureStore) GetPlateNumber(site SiteID, category Category) (string, bool) {
	sc, ok := s.sites[site]
	if !ok {
		return "", false
	}
	plate, ok := sc.PlateNumbers[category]
	return plate, ok
}

// Photos returns a copy of the site's category to photo mapping. The result is
// empty, never nil, for a site with no entries.
func (s *CaptureStore) Photos(site SiteID) map[Category]Image {
	out := make(map[Category]Image)
	if sc, ok := s.sites[site]; ok {
		for c, img := range sc.Photos {
			out[c] = img
		}
	}
	return out
}

// PlateNumbers returns a copy of the site's category to plate mapping.
func (s *CaptureStore) PlateNumbers(site SiteID) map[Category]string {
	out := make(map[Category]string)
	if sc, ok := s.sites[site]; ok {
		for c, p := range sc.PlateNumbers {
			out[c] = p
		}
	}
	return out
}

// Clone returns a store that shares no maps with s.
func (s *CaptureStore) Clone() CaptureStore {
	out := CaptureStore{sites: make(map[SiteID]*SiteCaptures, len(s.sites))}
	for id := range s.sites {
		out.sites[id] = &SiteCaptures{
			Photos:       s.Photos(id),
			PlateNumbers: s.PlateNumbers(id),
		}
	}
	return out
}
