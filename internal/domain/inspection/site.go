package inspection

// SiteID is the stable key of a delivery site.
type SiteID string

// Facing selects which camera of a site is used for a capture.
type Facing string

const (
	FacingBack  Facing = "back"
	FacingFront Facing = "front"
)

// Site is a physical delivery location. The set of sites is fixed at startup.
type Site struct {
	ID      SiteID            `json:"id"`
	Name    string            `json:"name"`
	Cameras map[Facing]string `json:"-"`
}

// HasCamera reports whether the site has a snapshot camera for the facing mode.
func (s Site) HasCamera(f Facing) bool {
	return s.Cameras[f] != ""
}

// ParseFacing maps a client facing preference to a Facing. Anything other
// than "front" (including an empty value) selects the back camera.
func ParseFacing(s string) Facing {
	if Facing(s) == FacingFront || s == "user" {
		return FacingFront
	}
	return FacingBack
}
