package cube

import (
	"errors"
	"math"

	"github.com/mrjoshuak/go-cubemap/tex"
)

// ErrShapeMismatch is returned when an image does not have the shape a remap
// requires (wrong aspect, wrong face count, mismatched face list).
var ErrShapeMismatch = errors.New("cube: image shape does not match the requested remap")

// crossTiles returns the (column, row) tile position of each face within a
// cross layout. The vertical cross puts -Z at the bottom, stored rotated 180
// degrees relative to cube-map convention; the horizontal cross puts -Z to
// the right of +X with no transform.
func crossTiles(vertical bool) [6][2]int {
	if vertical {
		return [6][2]int{
			FacePosX: {2, 1},
			FaceNegX: {0, 1},
			FacePosY: {1, 0},
			FaceNegY: {1, 2},
			FacePosZ: {1, 1},
			FaceNegZ: {1, 3},
		}
	}
	return [6][2]int{
		FacePosX: {2, 1},
		FaceNegX: {0, 1},
		FacePosY: {1, 0},
		FaceNegY: {1, 2},
		FacePosZ: {1, 1},
		FaceNegZ: {3, 1},
	}
}

// FromCross converts a 3:4 (vertical) or 4:3 (horizontal) cross image into a
// six-face cube-map. Only the base mip of the source is used; the result has
// a single mip level.
func FromCross(src *tex.Image) (*tex.Image, error) {
	if src.NumFaces != 1 || src.Height == 0 {
		return nil, ErrShapeMismatch
	}
	aspect := float64(src.Width) / float64(src.Height)
	isVertical := math.Abs(aspect-3.0/4.0) < 1e-4
	isHorizontal := math.Abs(aspect-4.0/3.0) < 1e-4
	if !isVertical && !isHorizontal {
		return nil, ErrShapeMismatch
	}

	var faceSize int
	if isVertical {
		faceSize = (src.Width + 2) / 3
	} else {
		faceSize = (src.Width + 3) / 4
	}

	bpp := src.Format.BytesPerPixel()
	srcPitch := src.Width * bpp
	facePitch := faceSize * bpp
	faceDataSize := facePitch * faceSize

	dst := tex.New(faceSize, faceSize, src.Format, 1, tex.CubeFaceCount)
	tiles := crossTiles(isVertical)

	for face := 0; face < tex.CubeFaceCount; face++ {
		srcOff := tiles[face][1]*faceSize*srcPitch + tiles[face][0]*facePitch
		dstFace := dst.Data[face*faceDataSize:]
		for y := 0; y < faceSize; y++ {
			copy(dstFace[y*facePitch:(y+1)*facePitch], src.Data[srcOff+y*srcPitch:srcOff+y*srcPitch+facePitch])
		}
	}

	if isVertical {
		dst.Transform(tex.TransformArg{Faces: tex.FaceNegZ, Ops: tex.OpFlipX | tex.OpFlipY})
	}
	return dst, nil
}

// CrossFromCube lays a cube-map out as a cross image: 3:4 when vertical is
// true, 4:3 otherwise. The margin is filled with opaque black and the source
// mip chain is preserved.
func CrossFromCube(src *tex.Image, vertical bool) (*tex.Image, error) {
	if !src.IsCubemap() {
		return nil, ErrShapeMismatch
	}

	work := src.Copy()
	if vertical {
		work.Transform(tex.TransformArg{Faces: tex.FaceNegZ, Ops: tex.OpFlipX | tex.OpFlipY})
	}

	cols, rows := 4, 3
	if vertical {
		cols, rows = 3, 4
	}

	bpp := work.Format.BytesPerPixel()
	dst := tex.New(cols*work.Width, rows*work.Width, work.Format, work.NumMips, 1)

	// Paint the margin black.
	black := make([]byte, bpp)
	tex.PixelFromCanonical([4]float32{0, 0, 0, 1}, work.Format, black)
	for off := 0; off < len(dst.Data); off += bpp {
		copy(dst.Data[off:off+bpp], black)
	}

	srcOffsets := work.MipOffsets()
	dstOffsets := dst.MipOffsets()
	tiles := crossTiles(vertical)

	for mip := 0; mip < work.NumMips; mip++ {
		srcSize := work.MipWidth(mip)
		srcPitch := srcSize * bpp
		dstPitch := dst.MipWidth(mip) * bpp
		faceSize := dst.MipWidth(mip) / cols
		facePitch := faceSize * bpp

		dstMip := dst.Data[dstOffsets[0][mip]:]
		for face := 0; face < tex.CubeFaceCount; face++ {
			dstOff := tiles[face][1]*faceSize*dstPitch + tiles[face][0]*facePitch
			srcFace := work.Data[srcOffsets[face][mip]:]
			for y := 0; y < faceSize; y++ {
				copy(dstMip[dstOff+y*dstPitch:dstOff+y*dstPitch+facePitch], srcFace[y*srcPitch:y*srcPitch+facePitch])
			}
		}
	}
	return dst, nil
}

// HStripFromCube lays a cube-map out as a 6:1 horizontal strip with faces in
// +X, -X, +Y, -Y, +Z, -Z order. No face is transformed and the mip chain is
// preserved; the conversion is byte-exact.
func HStripFromCube(src *tex.Image) (*tex.Image, error) {
	if !src.IsCubemap() {
		return nil, ErrShapeMismatch
	}

	bpp := src.Format.BytesPerPixel()
	dst := tex.New(src.Width*6, src.Width, src.Format, src.NumMips, 1)
	srcOffsets := src.MipOffsets()
	dstOffsets := dst.MipOffsets()

	for face := 0; face < tex.CubeFaceCount; face++ {
		for mip := 0; mip < src.NumMips; mip++ {
			srcSize := src.MipWidth(mip)
			srcPitch := srcSize * bpp
			dstPitch := srcPitch * 6

			srcFace := src.Data[srcOffsets[face][mip]:]
			dstMip := dst.Data[dstOffsets[0][mip]+face*srcPitch:]
			for y := 0; y < srcSize; y++ {
				copy(dstMip[y*dstPitch:y*dstPitch+srcPitch], srcFace[y*srcPitch:(y+1)*srcPitch])
			}
		}
	}
	return dst, nil
}

// FromHStrip converts a 6:1 horizontal strip into a six-face cube-map,
// preserving the mip chain byte-exactly.
func FromHStrip(src *tex.Image) (*tex.Image, error) {
	if !src.IsHStrip() {
		return nil, ErrShapeMismatch
	}

	bpp := src.Format.BytesPerPixel()
	size := src.Height
	dst := tex.New(size, size, src.Format, src.NumMips, tex.CubeFaceCount)
	srcOffsets := src.MipOffsets()
	dstOffsets := dst.MipOffsets()

	for face := 0; face < tex.CubeFaceCount; face++ {
		for mip := 0; mip < src.NumMips; mip++ {
			dstSize := dst.MipWidth(mip)
			dstPitch := dstSize * bpp
			srcPitch := dstPitch * 6

			srcMip := src.Data[srcOffsets[0][mip]+face*dstPitch:]
			dstFace := dst.Data[dstOffsets[face][mip]:]
			for y := 0; y < dstSize; y++ {
				copy(dstFace[y*dstPitch:(y+1)*dstPitch], srcMip[y*srcPitch:y*srcPitch+dstPitch])
			}
		}
	}
	return dst, nil
}

// FaceListFromCube splits a cube-map into six independent single-face images
// sharing size, format and mip count.
func FaceListFromCube(src *tex.Image) ([6]*tex.Image, error) {
	var faces [6]*tex.Image
	if !src.IsCubemap() {
		return faces, ErrShapeMismatch
	}

	srcOffsets := src.MipOffsets()
	for face := 0; face < tex.CubeFaceCount; face++ {
		f := tex.New(src.Width, src.Height, src.Format, src.NumMips, 1)
		fOffsets := f.MipOffsets()
		bpp := src.Format.BytesPerPixel()
		for mip := 0; mip < src.NumMips; mip++ {
			size := src.MipWidth(mip) * src.MipHeight(mip) * bpp
			copy(f.Data[fOffsets[0][mip]:fOffsets[0][mip]+size],
				src.Data[srcOffsets[face][mip]:srcOffsets[face][mip]+size])
		}
		faces[face] = f
	}
	return faces, nil
}

// FromFaceList merges six single-face images of identical square size, format
// and mip count into a cube-map.
func FromFaceList(faces [6]*tex.Image) (*tex.Image, error) {
	first := faces[0]
	for _, f := range faces {
		if f == nil || f.NumFaces != 1 || f.Width != f.Height ||
			f.Width != first.Width || f.NumMips != first.NumMips || f.Format != first.Format {
			return nil, ErrShapeMismatch
		}
	}

	dst := tex.New(first.Width, first.Height, first.Format, first.NumMips, tex.CubeFaceCount)
	dstOffsets := dst.MipOffsets()
	bpp := first.Format.BytesPerPixel()

	for face := 0; face < tex.CubeFaceCount; face++ {
		srcOffsets := faces[face].MipOffsets()
		for mip := 0; mip < first.NumMips; mip++ {
			size := first.MipWidth(mip) * first.MipHeight(mip) * bpp
			copy(dst.Data[dstOffsets[face][mip]:dstOffsets[face][mip]+size],
				faces[face].Data[srcOffsets[0][mip]:srcOffsets[0][mip]+size])
		}
	}
	return dst, nil
}

// FromLatLong converts a 2:1 equirectangular image into a cube-map with face
// size ceil(height/2). Source mips beyond the base are ignored; the result
// has a single mip level. When bilinear is true each destination texel takes
// a four-tap weighted sample, RGB only, with alpha forced to 1.
func FromLatLong(src *tex.Image, bilinear bool) (*tex.Image, error) {
	if !src.IsLatLong() {
		return nil, ErrShapeMismatch
	}

	canonical, _ := tex.RefOrConvert(src, tex.FormatRGBA32F)

	faceSize := (canonical.Height + 1) / 2
	dst := tex.New(faceSize, faceSize, tex.FormatRGBA32F, 1, tex.CubeFaceCount)

	srcW, srcH := canonical.Width, canonical.Height
	srcPitch := srcW * 16
	dstPitch := faceSize * 16
	faceDataSize := dstPitch * faceSize
	invFaceSize := 1 / float64(faceSize)

	for face := 0; face < tex.CubeFaceCount; face++ {
		dstFace := dst.Data[face*faceDataSize:]
		for yy := 0; yy < faceSize; yy++ {
			for xx := 0; xx < faceSize; xx++ {
				u := 2*float64(xx)*invFaceSize - 1
				v := 2*float64(yy)*invFaceSize - 1

				dx, dy, dz := TexelToVec(u, v, face)
				su, sv := LatLongFromVec(dx, dy, dz)

				xSrc := su * float64(srcW-1)
				ySrc := sv * float64(srcH-1)

				px := sampleCanonical(canonical.Data, 0, srcW, srcH, srcPitch, xSrc, ySrc, bilinear)
				tex.SetCanonicalAt(dstFace, yy*dstPitch+xx*16, px)
			}
		}
	}

	if src.Format == tex.FormatRGBA32F {
		return dst, nil
	}
	return tex.Convert(dst, src.Format), nil
}

// LatLongFromCube converts a cube-map into a 2:1 equirectangular image of
// height 2*faceSize and width 4*faceSize. The source mip chain is preserved:
// each source mip yields the same-index destination mip.
func LatLongFromCube(src *tex.Image, bilinear bool) (*tex.Image, error) {
	if !src.IsCubemap() {
		return nil, ErrShapeMismatch
	}

	canonical, _ := tex.RefOrConvert(src, tex.FormatRGBA32F)

	dstW := canonical.Height * 4
	dstH := canonical.Height * 2
	dst := tex.New(dstW, dstH, tex.FormatRGBA32F, canonical.NumMips, 1)

	srcOffsets := canonical.MipOffsets()
	dstOffsets := dst.MipOffsets()

	for mip := 0; mip < canonical.NumMips; mip++ {
		mipW := dst.MipWidth(mip)
		mipH := dst.MipHeight(mip)
		mipPitch := mipW * 16
		invW := 1 / float64(mipW-1)
		invH := 1 / float64(mipH-1)

		srcSize := canonical.MipWidth(mip)
		srcPitch := srcSize * 16

		dstMip := dst.Data[dstOffsets[0][mip]:]
		for yy := 0; yy < mipH; yy++ {
			for xx := 0; xx < mipW; xx++ {
				u := float64(xx) * invW
				v := float64(yy) * invH

				dx, dy, dz := VecFromLatLong(u, v)
				su, sv, face := VecToTexel(dx, dy, dz)

				xSrc := su * float64(srcSize)
				ySrc := sv * float64(srcSize)

				px := sampleCanonical(canonical.Data, srcOffsets[face][mip], srcSize, srcSize, srcPitch, xSrc, ySrc, bilinear)
				tex.SetCanonicalAt(dstMip, yy*mipPitch+xx*16, px)
			}
		}
	}

	if src.Format == tex.FormatRGBA32F {
		return dst, nil
	}
	return tex.Convert(dst, src.Format), nil
}

// sampleCanonical reads an RGB sample from an RGBA32F pixel region, either
// nearest-neighbor or with a four-tap bilinear kernel. Alpha is forced to 1.
func sampleCanonical(data []byte, base, w, h, pitch int, x, y float64, bilinear bool) [4]float32 {
	x0 := int(x)
	y0 := int(y)
	if x0 > w-1 {
		x0 = w - 1
	}
	if y0 > h-1 {
		y0 = h - 1
	}

	if !bilinear {
		px := tex.CanonicalAt(data, base+y0*pitch+x0*16)
		return [4]float32{px[0], px[1], px[2], 1}
	}

	x1 := x0 + 1
	if x1 > w-1 {
		x1 = w - 1
	}
	y1 := y0 + 1
	if y1 > h-1 {
		y1 = h - 1
	}

	tx := float32(x - float64(x0))
	ty := float32(y - float64(y0))

	p00 := tex.CanonicalAt(data, base+y0*pitch+x0*16)
	p10 := tex.CanonicalAt(data, base+y0*pitch+x1*16)
	p01 := tex.CanonicalAt(data, base+y1*pitch+x0*16)
	p11 := tex.CanonicalAt(data, base+y1*pitch+x1*16)

	w00 := (1 - tx) * (1 - ty)
	w10 := tx * (1 - ty)
	w01 := (1 - tx) * ty
	w11 := tx * ty

	return [4]float32{
		p00[0]*w00 + p10[0]*w10 + p01[0]*w01 + p11[0]*w11,
		p00[1]*w00 + p10[1]*w10 + p01[1]*w01 + p11[1]*w11,
		p00[2]*w00 + p10[2]*w10 + p01[2]*w01 + p11[2]*w11,
		1,
	}
}
