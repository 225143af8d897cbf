package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log"
	"os"

	// register decoders for formats other than png
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/swdee/go-bytetrack/affine"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	inFile := flag.String("i", "", "Input image file (png, jpeg, bmp, or tiff)")
	outFile := flag.String("o", "./warped.png", "Output PNG file")
	angle := flag.Float64("angle", 30, "Rotation angle in degrees")
	scale := flag.Float64("scale", 1.0, "Uniform scale factor")

	flag.Parse()

	if *inFile == "" {
		log.Fatal("Provide an input image with -i")
	}

	err := run(*inFile, *outFile, *angle, *scale)

	if err != nil {
		log.Fatalf("Error warping image: %v", err)
	}
}

// run warps the input image by rotating and scaling it about its center
func run(inFile, outFile string, angle, scale float64) error {

	src, err := loadImage(inFile)

	if err != nil {
		return err
	}

	// rotate about the image center
	cx := float32(src.Width) / 2
	cy := float32(src.Height) / 2
	m := affine.RotationAbout(cx, cy, float32(angle), float32(scale))

	dst := affine.NewRaster(src.Width, src.Height, src.Channels)

	err = affine.Warp(src, dst, m, affine.InterpBilinear,
		affine.Border{Mode: affine.BorderReflect})

	if err != nil {
		return err
	}

	return saveImage(outFile, dst)
}

// loadImage decodes the image file and flattens it to a 4 channel RGBA
// raster
func loadImage(path string) (*affine.Raster, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening image: %w", err)
	}

	defer f.Close()

	img, format, err := image.Decode(f)

	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}

	log.Printf("Loaded %s image %dx%d", format, img.Bounds().Dx(),
		img.Bounds().Dy())

	bounds := img.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	return &affine.Raster{
		Pix:      rgba.Pix,
		Width:    rgba.Rect.Dx(),
		Height:   rgba.Rect.Dy(),
		Channels: 4,
	}, nil
}

// saveImage encodes the raster as a PNG file
func saveImage(path string, r *affine.Raster) error {

	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	copy(img.Pix, r.Pix)

	f, err := os.Create(path)

	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}

	defer f.Close()

	err = png.Encode(f, img)

	if err != nil {
		return fmt.Errorf("error encoding png: %w", err)
	}

	return nil
}
