package geom

// NormalizeRotation converts a rotation value into a stable quarter-turn count
// in [0,3]. It accepts either quarter-turns (0..3) or degrees (multiples of 90).
func NormalizeRotation(r int) int {
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= 4
	if r < 0 {
		r += 4
	}
	return r
}

// RotateXZ rotates an (x,z) offset around the Y axis by rot*90 degrees
// clockwise. rot must be a normalized quarter-turn count in [0,3].
func RotateXZ(x, z, rot int) (rx, rz int) {
	switch rot & 3 {
	case 0:
		return x, z
	case 1:
		return z, -x
	case 2:
		return -x, -z
	default: // 3
		return -z, x
	}
}

// RotatedSize swaps width and depth for odd quarter turns.
func RotatedSize(size [2]int, rot int) [2]int {
	if NormalizeRotation(rot)%2 == 1 {
		return [2]int{size[1], size[0]}
	}
	return size
}

// OccupiedRect lists the cells covered by a structure of the given size
// centered on center. Odd sizes are centered exactly; for even sizes the extra
// row/column falls on the negative side of the rotated axis. Cells are
// returned x-major, then z.
func OccupiedRect(center Vec3i, size [2]int, rot int) []Vec3i {
	w, d := size[0], size[1]
	if w <= 0 || d <= 0 {
		return nil
	}
	rot = NormalizeRotation(rot)

	// Rotate the unrotated corner offsets and take the bounding box.
	minX, minZ := -(w / 2), -(d / 2)
	maxX, maxZ := minX+w-1, minZ+d-1
	ax, az := RotateXZ(minX, minZ, rot)
	bx, bz := RotateXZ(maxX, maxZ, rot)
	if ax > bx {
		ax, bx = bx, ax
	}
	if az > bz {
		az, bz = bz, az
	}

	out := make([]Vec3i, 0, w*d)
	for x := ax; x <= bx; x++ {
		for z := az; z <= bz; z++ {
			out = append(out, Vec3i{X: center.X + x, Y: center.Y, Z: center.Z + z})
		}
	}
	return out
}
