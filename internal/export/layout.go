package export

// Box is a placement in page units (millimetres).
type Box struct {
	X, Y, W, H float64
}

// FitWidth scales content of size w×h so it spans the page width minus a
// margin on each side, keeping its aspect ratio. The result is anchored at
// (margin, margin).
func FitWidth(w, h, pageW, margin float64) Box {
	if w <= 0 || h <= 0 {
		return Box{X: margin, Y: margin}
	}
	targetW := pageW - 2*margin
	scale := targetW / w
	return Box{X: margin, Y: margin, W: targetW, H: h * scale}
}

// FitInside scales w×h to the largest size that fits into box, keeping its
// aspect ratio, and centres it.
func FitInside(w, h float64, box Box) Box {
	if w <= 0 || h <= 0 || box.W <= 0 || box.H <= 0 {
		return Box{X: box.X, Y: box.Y}
	}
	scale := box.W / w
	if s := box.H / h; s < scale {
		scale = s
	}
	fw, fh := w*scale, h*scale
	return Box{
		X: box.X + (box.W-fw)/2,
		Y: box.Y + (box.H-fh)/2,
		W: fw,
		H: fh,
	}
}
