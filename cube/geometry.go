// Package cube provides cube-map geometry and layout conversions: the math
// between 3D directions, cube faces and equirectangular (lat-long)
// coordinates, plus remappings between the common 2D cube-map layouts
// (six-face stack, horizontal strip, vertical and horizontal cross,
// lat-long projection).
package cube

import (
	"math"

	"github.com/mrjoshuak/go-cubemap/half"
	"github.com/mrjoshuak/go-cubemap/tex"
)

// Face indices, the single source of truth for face order.
const (
	FacePosX = 0
	FaceNegX = 1
	FacePosY = 2
	FaceNegY = 3
	FacePosZ = 4
	FaceNegZ = 5
)

// faceUV holds, per face, the 3D direction of the face's u axis, v axis and
// outward normal. (u, v) in [-1, 1]^2 map to u*U + v*V + N.
var faceUV = [6][3][3]float64{
	{ // +X
		{0, 0, -1},
		{0, -1, 0},
		{1, 0, 0},
	},
	{ // -X
		{0, 0, 1},
		{0, -1, 0},
		{-1, 0, 0},
	},
	{ // +Y
		{1, 0, 0},
		{0, 0, 1},
		{0, 1, 0},
	},
	{ // -Y
		{1, 0, 0},
		{0, 0, -1},
		{0, -1, 0},
	},
	{ // +Z
		{1, 0, 0},
		{0, -1, 0},
		{0, 0, 1},
	},
	{ // -Z
		{-1, 0, 0},
		{0, -1, 0},
		{0, 0, -1},
	},
}

// TexelToVec maps face coordinates (u, v) in [-1, 1]^2 on the given face to a
// normalized direction on the unit sphere.
func TexelToVec(u, v float64, face int) (x, y, z float64) {
	f := &faceUV[face]
	x = u*f[0][0] + v*f[1][0] + f[2][0]
	y = u*f[0][1] + v*f[1][1] + f[2][1]
	z = u*f[0][2] + v*f[1][2] + f[2][2]
	inv := 1 / math.Sqrt(x*x+y*y+z*z)
	return x * inv, y * inv, z * inv
}

// VecToTexel projects a direction onto its dominant-axis face, returning face
// coordinates (u, v) in [0, 1]^2 and the face index.
func VecToTexel(x, y, z float64) (u, v float64, face int) {
	ax, ay, az := math.Abs(x), math.Abs(y), math.Abs(z)

	var maxAxis float64
	switch {
	case ax >= ay && ax >= az:
		maxAxis = ax
		if x >= 0 {
			face = FacePosX
		} else {
			face = FaceNegX
		}
	case ay >= az:
		maxAxis = ay
		if y >= 0 {
			face = FacePosY
		} else {
			face = FaceNegY
		}
	default:
		maxAxis = az
		if z >= 0 {
			face = FacePosZ
		} else {
			face = FaceNegZ
		}
	}
	if maxAxis == 0 {
		return 0.5, 0.5, FacePosX
	}

	px, py, pz := x/maxAxis, y/maxAxis, z/maxAxis
	f := &faceUV[face]
	u = (f[0][0]*px + f[0][1]*py + f[0][2]*pz + 1) * 0.5
	v = (f[1][0]*px + f[1][1]*py + f[1][2]*pz + 1) * 0.5
	return u, v, face
}

// LatLongFromVec maps a normalized direction to lat-long coordinates
// (u, v) in [0, 1]^2: u = 0.5 + atan2(z, x)/2pi, v = 0.5 - asin(y)/pi.
func LatLongFromVec(x, y, z float64) (u, v float64) {
	u = 0.5 + math.Atan2(z, x)/(2*math.Pi)
	v = 0.5 - math.Asin(clampUnit(y))/math.Pi
	return u, v
}

// VecFromLatLong maps lat-long coordinates (u, v) in [0, 1]^2 back to a
// normalized direction. It is the inverse of LatLongFromVec.
func VecFromLatLong(u, v float64) (x, y, z float64) {
	phi := (u - 0.5) * 2 * math.Pi
	theta := (0.5 - v) * math.Pi
	y = math.Sin(theta)
	r := math.Cos(theta)
	x = r * math.Cos(phi)
	z = r * math.Sin(phi)
	return x, y, z
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

// IsCubeCross reports whether the image looks like a cube cross: 3:4 or 4:3
// aspect with a near-black margin around the face tiles. The probe samples
// six key points that lie in the margin of a well-formed cross; it is a
// heuristic and can misclassify crosses with non-black backgrounds.
func IsCubeCross(im *tex.Image) bool {
	if im.NumFaces != 1 || im.Height == 0 {
		return false
	}

	aspect := float64(im.Width) / float64(im.Height)
	isVertical := math.Abs(aspect-3.0/4.0) < 1e-4
	isHorizontal := math.Abs(aspect-4.0/3.0) < 1e-4
	if !isVertical && !isHorizontal {
		return false
	}

	tiles := 4
	if isVertical {
		tiles = 3
	}
	faceSize := (im.Width + tiles - 1) / tiles

	// Key point (tile column + 1/2, tile row + 1/2) pairs in face units,
	// placed at margin tiles of each layout.
	type point struct{ cx, cy float64 }
	var keys [6]point
	if isVertical {
		//    . |+Y | .
		//   |-X |+Z |+X |
		//    . |-Y | .
		//    . |-Z | .
		keys = [6]point{
			{0.5, 0.5}, {2.5, 0.5},
			{0.5, 2.5}, {2.5, 2.5},
			{0.5, 3.5}, {2.5, 3.5},
		}
	} else {
		//    . |+Y | .   .
		//   |-X |+Z |+X |-Z |
		//    . |-Y | .   .
		keys = [6]point{
			{0.5, 0.5}, {2.5, 0.5}, {3.5, 0.5},
			{0.5, 2.5}, {2.5, 2.5}, {3.5, 2.5},
		}
	}

	bpp := im.Format.BytesPerPixel()
	pitch := im.Width * bpp

	for _, k := range keys {
		x := int(k.cx * float64(faceSize))
		y := int(k.cy * float64(faceSize))
		if x >= im.Width {
			x = im.Width - 1
		}
		if y >= im.Height {
			y = im.Height - 1
		}
		if !nearBlack(im.Format, im.Data[y*pitch+x*bpp:y*pitch+(x+1)*bpp]) {
			return false
		}
	}
	return true
}

// nearBlack applies the per-depth darkness thresholds: integer channels below
// 2 LSB, float channels below 0.01.
func nearBlack(format tex.Format, px []byte) bool {
	switch format {
	case tex.FormatBGR8, tex.FormatRGB8, tex.FormatBGRA8, tex.FormatRGBA8:
		return px[0] < 2 && px[1] < 2 && px[2] < 2
	case tex.FormatRGB16, tex.FormatRGBA16:
		return u16le(px, 0) < 2 && u16le(px, 2) < 2 && u16le(px, 4) < 2
	case tex.FormatRGB16F, tex.FormatRGBA16F:
		return half.FromBits(u16le(px, 0)).Float32() < 0.01 &&
			half.FromBits(u16le(px, 2)).Float32() < 0.01 &&
			half.FromBits(u16le(px, 4)).Float32() < 0.01
	case tex.FormatRGB32F, tex.FormatRGBA32F:
		return f32le(px, 0) < 0.01 && f32le(px, 4) < 0.01 && f32le(px, 8) < 0.01
	case tex.FormatRGBE:
		c := tex.PixelToCanonical(tex.FormatRGBE, px)
		return c[0] < 0.01 && c[1] < 0.01 && c[2] < 0.01
	}
	return false
}

func u16le(b []byte, off int) uint16 {
	return uint16(b[off]) | uint16(b[off+1])<<8
}

func f32le(b []byte, off int) float32 {
	bits := uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
	return math.Float32frombits(bits)
}
