package rsfusion

import (
	"math"
	"testing"
)

func TestNormalizeStackRange(t *testing.T) {
	out := normalizeStack([]float64{10, 20, 30})
	want := []float64{0, 0.5, 1}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Fatalf("normalize wrong at %d: %v", i, out)
		}
	}
}

func TestNormalizeStackIdentity(t *testing.T) {
	in := []float64{0, 0.25, 0.5, 1}
	out := normalizeStack(in)
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1e-9 {
			t.Fatalf("already normalized stack must pass through, got %v", out)
		}
	}
}

func TestNormalizeStackConstant(t *testing.T) {
	out := normalizeStack([]float64{5, 5, 5})
	for _, v := range out {
		if v != 0 {
			t.Fatalf("constant raster must normalize to zeros, got %v", out)
		}
	}
}

func TestNormalizeStackGlobal(t *testing.T) {
	// 两个“波段”合并求极值，而非各自归一化
	out := normalizeStack([]float64{0, 1, 2, 4})
	if out[1] != 0.25 || out[3] != 1 {
		t.Fatalf("min-max must be global across bands: %v", out)
	}
}

func TestNormalizeStackEmpty(t *testing.T) {
	if out := normalizeStack(nil); len(out) != 0 {
		t.Fatal("empty input must yield empty output")
	}
}

func TestRasterImageBandView(t *testing.T) {
	r := &RasterImage{
		Samples: []float64{1, 2, 3, 4, 5, 6, 7, 8},
		Bands:   2,
		Height:  2,
		Width:   2,
	}
	b1 := r.Band(1)
	if len(b1) != 4 || b1[0] != 5 {
		t.Fatalf("band view wrong: %v", b1)
	}
	b1[0] = 50
	if r.Samples[4] != 50 {
		t.Fatal("band must be a view into samples")
	}
}

func TestSameGrid(t *testing.T) {
	gt := [6]float64{0, 10, 0, 100, 0, -10}
	a := &RasterImage{Height: 10, Width: 10, Transform: gt}
	b := &RasterImage{Height: 10, Width: 10, Transform: gt}
	if !a.SameGrid(b) {
		t.Fatal("identical grids must match")
	}
	c := &RasterImage{Height: 10, Width: 11, Transform: gt}
	if a.SameGrid(c) {
		t.Fatal("mismatched width must not match")
	}
	gt2 := gt
	gt2[0] = 5
	d := &RasterImage{Height: 10, Width: 10, Transform: gt2}
	if a.SameGrid(d) {
		t.Fatal("shifted transform must not match")
	}
}

func TestSpanFromTransform(t *testing.T) {
	gt := [6]float64{500000, 10, 0, 4100000, 0, -10}
	span := spanFromTransform(gt, 100, 200)
	if span != [4]float64{500000, 501000, 4098000, 4100000} {
		t.Fatalf("span wrong: %v", span)
	}
	r := &RasterImage{Width: 100, Height: 200, Transform: gt}
	if r.Span() != span {
		t.Fatal("raster span must match its transform span")
	}
}

func TestFootprintRing(t *testing.T) {
	fp := spanToFootprint([4]float64{70, 71, 30, 31}, UNIVERSAL_SRID)
	if len(fp.Ring) != 5 {
		t.Fatalf("footprint ring must be closed with 5 points, got %d", len(fp.Ring))
	}
	if fp.Ring[0] != fp.Ring[4] {
		t.Fatal("footprint ring must close on its first point")
	}
	wkt := fp.Wkt()
	if wkt == "" || wkt[:9] != "POLYGON((" {
		t.Fatalf("bad footprint wkt: %s", wkt)
	}
}
