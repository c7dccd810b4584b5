package rsfusion

import (
	"math"
	"path/filepath"
	"testing"
)

func writeRectRaster(t *testing.T, g *GdalToolbox, path string, lon, lat float64) {
	t.Helper()
	img := &RasterImage{
		Samples:   make([]float64, 16),
		Bands:     1,
		Height:    4,
		Width:     4,
		Transform: [6]float64{lon, 0.01, 0, lat, 0, -0.01},
		Srid:      UNIVERSAL_SRID,
		DataType:  DTFloat32,
	}
	if err := g.WriteRasterImage(path, img); err != nil {
		t.Fatal(err)
	}
}

func TestOverlapDisjoint(t *testing.T) {
	dir := t.TempDir()
	g := NewGdalToolbox(dir)
	a := filepath.Join(dir, "a.tif")
	b := filepath.Join(dir, "b.tif")
	writeRectRaster(t, g, a, 70, 31)
	writeRectRaster(t, g, b, 80, 41)
	_, empty, err := g.Overlap(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !empty {
		t.Fatal("disjoint rasters must report an empty overlap")
	}
}

func TestOverlapIdenticalBounds(t *testing.T) {
	dir := t.TempDir()
	g := NewGdalToolbox(dir)
	a := filepath.Join(dir, "a.tif")
	b := filepath.Join(dir, "b.tif")
	writeRectRaster(t, g, a, 70, 31)
	writeRectRaster(t, g, b, 70, 31)
	fp, empty, err := g.Overlap(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if empty {
		t.Fatal("identical rasters must overlap")
	}
	mnX, mxX := math.Inf(1), math.Inf(-1)
	mnY, mxY := math.Inf(1), math.Inf(-1)
	for _, p := range fp.Ring {
		mnX, mxX = math.Min(mnX, p[0]), math.Max(mxX, p[0])
		mnY, mxY = math.Min(mnY, p[1]), math.Max(mxY, p[1])
	}
	if math.Abs(mnX-70) > 1e-9 || math.Abs(mxX-70.04) > 1e-9 ||
		math.Abs(mnY-30.96) > 1e-9 || math.Abs(mxY-31) > 1e-9 {
		t.Fatalf("overlap of identical rasters must be their own bounds, got %v", fp.Ring)
	}
}
