package geom

// Quadrant names one of the four satellite slots around a quarry anchor.
type Quadrant int

const (
	UpperLeft Quadrant = iota
	UpperRight
	LowerLeft
	LowerRight
)

// QuadrantCount is the number of satellite slots per anchor.
const QuadrantCount = 4

// SatelliteDistance is the per-axis distance between an anchor and each satellite.
const SatelliteDistance = 3

func (q Quadrant) String() string {
	switch q {
	case UpperLeft:
		return "UL"
	case UpperRight:
		return "UR"
	case LowerLeft:
		return "LL"
	case LowerRight:
		return "LR"
	default:
		return "?"
	}
}

func OffsetUL(base Vec3i) Vec3i { return base.Add(Vec3i{X: -SatelliteDistance, Z: SatelliteDistance}) }
func OffsetUR(base Vec3i) Vec3i { return base.Add(Vec3i{X: SatelliteDistance, Z: SatelliteDistance}) }
func OffsetLL(base Vec3i) Vec3i { return base.Add(Vec3i{X: -SatelliteDistance, Z: -SatelliteDistance}) }
func OffsetLR(base Vec3i) Vec3i { return base.Add(Vec3i{X: SatelliteDistance, Z: -SatelliteDistance}) }

var quadrantOffsets = [QuadrantCount]func(Vec3i) Vec3i{
	UpperLeft:  OffsetUL,
	UpperRight: OffsetUR,
	LowerLeft:  OffsetLL,
	LowerRight: OffsetLR,
}

// Offset applies the quadrant's fixed offset to base.
func (q Quadrant) Offset(base Vec3i) Vec3i {
	if q < 0 || int(q) >= QuadrantCount {
		return base
	}
	return quadrantOffsets[q](base)
}

// SatellitePositions returns the four satellite cells for an anchor at base,
// in UL, UR, LL, LR order. The elevation component is copied from base.
func SatellitePositions(base Vec3i) [QuadrantCount]Vec3i {
	var out [QuadrantCount]Vec3i
	for i, f := range quadrantOffsets {
		out[i] = f(base)
	}
	return out
}
