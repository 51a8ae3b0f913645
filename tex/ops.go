package tex

import (
	"math"
)

// Op is a bit set of in-place geometric operations.
type Op uint32

// Transform operations. When several are combined in one TransformArg they
// are applied in this fixed order: OpRot90, OpRot180, OpRot270, OpFlipX,
// OpFlipY, so composed calls are reproducible.
const (
	// OpRot90 rotates a face 90 degrees clockwise. Requires a square image.
	OpRot90 Op = 1 << iota
	// OpRot180 rotates a face 180 degrees. Requires a square image.
	OpRot180
	// OpRot270 rotates a face 270 degrees clockwise. Requires a square image.
	OpRot270
	// OpFlipX flips a face vertically (reverses row order).
	OpFlipX
	// OpFlipY flips a face horizontally (reverses pixels within each row).
	OpFlipY
)

// FaceMask selects cube-map faces, one bit per face index.
type FaceMask uint8

// Face selection masks, ordered +X, -X, +Y, -Y, +Z, -Z.
const (
	FacePosX FaceMask = 1 << iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
	FaceAll = FacePosX | FaceNegX | FacePosY | FaceNegY | FacePosZ | FaceNegZ
)

// TransformArg pairs a face selection with the operations to apply to it.
type TransformArg struct {
	Faces FaceMask
	Ops   Op
}

// Transform applies the requested operations to the selected faces, in place,
// on every mip level. Rotations require a square image; when the image is not
// square they are refused with a warning and skipped, leaving the affected
// data unchanged.
func (im *Image) Transform(args ...TransformArg) {
	bpp := im.Format.BytesPerPixel()
	offsets := im.MipOffsets()

	for _, arg := range args {
		for face := 0; face < im.NumFaces; face++ {
			if arg.Faces&(FaceMask(1)<<uint(face)) == 0 {
				continue
			}
			ops := arg.Ops
			if ops&(OpRot90|OpRot180|OpRot270) != 0 && im.Width != im.Height {
				Warnf("tex: in-place rotation requires a square image; skipping")
				ops &^= OpRot90 | OpRot180 | OpRot270
			}
			for mip := 0; mip < im.NumMips; mip++ {
				w := im.MipWidth(mip)
				h := im.MipHeight(mip)
				data := im.Data[offsets[face][mip]:]

				if ops&OpRot90 != 0 {
					transposeFace(data, w, bpp)
					flipRowPixels(data, w, h, bpp)
				}
				if ops&OpRot180 != 0 {
					rot180Face(data, w, h, bpp)
				}
				if ops&OpRot270 != 0 {
					transposeFace(data, w, bpp)
					flipRows(data, w, h, bpp)
				}
				if ops&OpFlipX != 0 {
					flipRows(data, w, h, bpp)
				}
				if ops&OpFlipY != 0 {
					flipRowPixels(data, w, h, bpp)
				}
			}
		}
	}
}

func swapBytes(a, b []byte) {
	for i := range a {
		a[i], b[i] = b[i], a[i]
	}
}

// transposeFace swaps the upper triangle with the lower one. Square faces only.
func transposeFace(data []byte, size, bpp int) {
	pitch := size * bpp
	for y := 0; y < size; y++ {
		for x := y + 1; x < size; x++ {
			a := data[y*pitch+x*bpp : y*pitch+(x+1)*bpp]
			b := data[x*pitch+y*bpp : x*pitch+(y+1)*bpp]
			swapBytes(a, b)
		}
	}
}

// rot180Face swaps (x, y) with (w-1-x, h-1-y), handling the middle row of
// odd-height faces as a special pass.
func rot180Face(data []byte, w, h, bpp int) {
	pitch := w * bpp
	y, yEnd := 0, h-1
	for ; y < yEnd; y, yEnd = y+1, yEnd-1 {
		row := data[y*pitch:]
		rowEnd := data[yEnd*pitch:]
		for x, xEnd := 0, w-1; x < w; x, xEnd = x+1, xEnd-1 {
			swapBytes(row[x*bpp:(x+1)*bpp], rowEnd[xEnd*bpp:(xEnd+1)*bpp])
		}
	}
	if y == yEnd {
		row := data[y*pitch:]
		for x, xEnd := 0, w-1; x < xEnd; x, xEnd = x+1, xEnd-1 {
			swapBytes(row[x*bpp:(x+1)*bpp], row[xEnd*bpp:(xEnd+1)*bpp])
		}
	}
}

// flipRows reverses the row order (vertical flip).
func flipRows(data []byte, w, h, bpp int) {
	pitch := w * bpp
	for y, yEnd := 0, h-1; y < yEnd; y, yEnd = y+1, yEnd-1 {
		swapBytes(data[y*pitch:(y+1)*pitch], data[yEnd*pitch:(yEnd+1)*pitch])
	}
}

// flipRowPixels reverses the pixel order within each row (horizontal flip).
func flipRowPixels(data []byte, w, h, bpp int) {
	pitch := w * bpp
	for y := 0; y < h; y++ {
		row := data[y*pitch:]
		for x, xEnd := 0, w-1; x < xEnd; x, xEnd = x+1, xEnd-1 {
			swapBytes(row[x*bpp:(x+1)*bpp], row[xEnd*bpp:(xEnd+1)*bpp])
		}
	}
}

// Resize box-average downsamples the image to the given dimensions in
// canonical space. Each destination pixel averages the RGB of its matching
// source rectangle; alpha is set to 1. The result has a single mip level and
// the source pixel format.
func Resize(src *Image, width, height int) *Image {
	canonical, _ := RefOrConvert(src, FormatRGBA32F)

	dst := New(width, height, FormatRGBA32F, 1, canonical.NumFaces)
	faceOffsets := canonical.FaceOffsets()
	srcPitch := canonical.Width * 16
	dstPitch := width * 16
	dstFaceSize := dstPitch * height

	ratioX := float64(canonical.Width) / float64(width)
	ratioY := float64(canonical.Height) / float64(height)
	spanX := int(ratioX)
	if spanX < 1 {
		spanX = 1
	}
	spanY := int(ratioY)
	if spanY < 1 {
		spanY = 1
	}

	for face := 0; face < canonical.NumFaces; face++ {
		srcFace := canonical.Data[faceOffsets[face]:]
		dstFace := dst.Data[face*dstFaceSize:]

		for yDst := 0; yDst < height; yDst++ {
			for xDst := 0; xDst < width; xDst++ {
				var r, g, b float32
				weight := 0

				ySrc := int(float64(yDst) * ratioY)
				for dy := 0; dy < spanY; dy++ {
					xSrc := int(float64(xDst) * ratioX)
					for dx := 0; dx < spanX; dx++ {
						px := CanonicalAt(srcFace, (ySrc+dy)*srcPitch+(xSrc+dx)*16)
						r += px[0]
						g += px[1]
						b += px[2]
						weight++
					}
				}

				inv := float32(1)
				if weight > 0 {
					inv = 1 / float32(weight)
				}
				SetCanonicalAt(dstFace, yDst*dstPitch+xDst*16, [4]float32{r * inv, g * inv, b * inv, 1})
			}
		}
	}

	if src.Format == FormatRGBA32F {
		return dst
	}
	return Convert(dst, src.Format)
}

// natMipCount returns the number of power-of-two halvings of w×h until both
// dimensions reach 1, counting the base level.
func natMipCount(w, h int) int {
	count := 0
	for count < MaxMipCount {
		count++
		if w <= 1 && h <= 1 {
			break
		}
		w >>= 1
		h >>= 1
	}
	return count
}

// GenerateMipChain rebuilds the image with a full mip chain of up to
// numMips levels, capped by MaxMipCount and by the number of halvings down to
// 1x1. Mips present in the source are copied; missing levels are produced by
// a 2x2 box filter over the immediately coarser level of the destination, so
// each synthesized level downsamples its own synthesized parent. Arithmetic
// happens in canonical space and the result keeps the source pixel format.
func (im *Image) GenerateMipChain(numMips int) {
	canonical, _ := RefOrConvert(im, FormatRGBA32F)

	mipCount := numMips
	if mipCount > MaxMipCount {
		mipCount = MaxMipCount
	}
	if nat := natMipCount(canonical.Width, canonical.Height); mipCount > nat {
		mipCount = nat
	}
	if mipCount < 1 {
		mipCount = 1
	}

	dst := New(canonical.Width, canonical.Height, FormatRGBA32F, mipCount, canonical.NumFaces)
	dstOffsets := dst.MipOffsets()
	srcOffsets := canonical.MipOffsets()

	for face := 0; face < canonical.NumFaces; face++ {
		for mip := 0; mip < mipCount; mip++ {
			w := dst.MipWidth(mip)
			h := dst.MipHeight(mip)
			pitch := w * 16
			dstMip := dst.Data[dstOffsets[face][mip]:]

			if mip < canonical.NumMips {
				srcMip := canonical.Data[srcOffsets[face][mip]:]
				copy(dstMip[:pitch*h], srcMip[:pitch*h])
				continue
			}

			parentW := dst.MipWidth(mip - 1)
			parentH := dst.MipHeight(mip - 1)
			parentPitch := parentW * 16
			parent := dst.Data[dstOffsets[face][mip-1]:]

			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					var sum [4]float32
					for py := y * 2; py < y*2+2; py++ {
						for px := x * 2; px < x*2+2; px++ {
							// A parent dimension of 1 is sampled twice.
							c := CanonicalAt(parent, min(py, parentH-1)*parentPitch+min(px, parentW-1)*16)
							sum[0] += c[0]
							sum[1] += c[1]
							sum[2] += c[2]
							sum[3] += c[3]
						}
					}
					SetCanonicalAt(dstMip, y*pitch+x*16,
						[4]float32{sum[0] * 0.25, sum[1] * 0.25, sum[2] * 0.25, sum[3] * 0.25})
				}
			}
		}
	}

	if im.Format == FormatRGBA32F {
		im.Move(dst)
		return
	}
	im.Move(Convert(dst, im.Format))
}

// ApplyGamma raises the R, G and B channels to the power gamma, leaving alpha
// untouched. A gamma within 1e-4 of 1 is a no-op.
func (im *Image) ApplyGamma(gamma float64) {
	if math.Abs(gamma-1) < 1e-4 {
		return
	}

	canonical, isRef := RefOrConvert(im, FormatRGBA32F)
	for off := 0; off < len(canonical.Data); off += 16 {
		px := CanonicalAt(canonical.Data, off)
		px[0] = float32(math.Pow(float64(px[0]), gamma))
		px[1] = float32(math.Pow(float64(px[1]), gamma))
		px[2] = float32(math.Pow(float64(px[2]), gamma))
		SetCanonicalAt(canonical.Data, off, px)
	}

	if !isRef {
		im.Move(Convert(canonical, im.Format))
	}
}

// Clamp saturates all four channels to [0, 1] in canonical space.
func (im *Image) Clamp() {
	canonical, isRef := RefOrConvert(im, FormatRGBA32F)
	for off := 0; off < len(canonical.Data); off += 16 {
		px := CanonicalAt(canonical.Data, off)
		px[0] = clamp01f(px[0])
		px[1] = clamp01f(px[1])
		px[2] = clamp01f(px[2])
		px[3] = clamp01f(px[3])
		SetCanonicalAt(canonical.Data, off, px)
	}

	if !isRef {
		im.Move(Convert(canonical, im.Format))
	}
}
