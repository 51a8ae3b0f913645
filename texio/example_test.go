package texio_test

import (
	"fmt"

	"github.com/mrjoshuak/go-cubemap/cube"
	"github.com/mrjoshuak/go-cubemap/tex"
	"github.com/mrjoshuak/go-cubemap/texio"
)

// Example_latLongToCubemap loads an equirectangular environment map,
// converts it to a cube-map and writes it as a DDS file.
func Example_latLongToCubemap() {
	img, err := texio.Load("environment.hdr", tex.FormatRGBA32F)
	if err != nil {
		fmt.Println("load:", err)
		return
	}

	cubemap, err := cube.FromLatLong(img, true)
	if err != nil {
		fmt.Println("remap:", err)
		return
	}
	cubemap.GenerateMipChain(tex.MaxMipCount)

	opts := texio.SaveOptions{ConvertTo: tex.FormatRGBA16F}
	if err := texio.Save(cubemap, "environment", tex.FileTypeDDS, opts); err != nil {
		fmt.Println("save:", err)
	}
}
