package rsfusion

import (
	"math"
	"strings"
	"testing"
)

func bandSetOf(h, w int, grids map[string][]float64) *BandSet {
	return &BandSet{
		Grids:  grids,
		Height: h,
		Width:  w,
		Srid:   32643,
	}
}

func TestNDVIDeterminism(t *testing.T) {
	bs := bandSetOf(1, 1, map[string][]float64{
		BAND_RED: {100},
		BAND_NIR: {200},
	})
	idx, err := deriveIndex(bs, IndexNDVI, DefaultIndexConfig())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(idx.Data[0]-100.0/300.0) > 1e-5 {
		t.Fatalf("NDVI = %f, want ~0.3333", idx.Data[0])
	}
}

func TestNDVIZeroBands(t *testing.T) {
	bs := bandSetOf(1, 1, map[string][]float64{
		BAND_RED: {0},
		BAND_NIR: {0},
	})
	idx, err := deriveIndex(bs, IndexNDVI, DefaultIndexConfig())
	if err != nil {
		t.Fatal(err)
	}
	if idx.Data[0] != 0 {
		t.Fatalf("NDVI of zero bands must be 0 (epsilon guard), got %f", idx.Data[0])
	}
}

func TestSAVI(t *testing.T) {
	bs := bandSetOf(1, 1, map[string][]float64{
		BAND_RED: {0.2},
		BAND_NIR: {0.4},
	})
	idx, err := deriveIndex(bs, IndexSAVI, DefaultIndexConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := (0.4 - 0.2) / (0.4 + 0.2 + 0.5) * 1.5
	if math.Abs(idx.Data[0]-want) > 1e-9 {
		t.Fatalf("SAVI = %f, want %f", idx.Data[0], want)
	}
}

func TestMNDWI(t *testing.T) {
	bs := bandSetOf(1, 2, map[string][]float64{
		BAND_GREEN: {300, 100},
		BAND_SWIR1: {100, 300},
	})
	idx, err := deriveIndex(bs, IndexMNDWI, DefaultIndexConfig())
	if err != nil {
		t.Fatal(err)
	}
	if idx.Data[0] < 0.49 || idx.Data[1] > -0.49 {
		t.Fatalf("MNDWI sign wrong: %v", idx.Data)
	}
}

func TestNormalizedNIR(t *testing.T) {
	bs := bandSetOf(2, 2, map[string][]float64{
		BAND_NIR: {1, 2, 3, math.NaN()},
	})
	idx, err := deriveIndex(bs, IndexNIR, DefaultIndexConfig())
	if err != nil {
		t.Fatal(err)
	}
	// 极值在忽略无效值后计算：min=1, max=3
	if math.Abs(idx.Data[0]) > 1e-5 || math.Abs(idx.Data[1]-0.5) > 1e-5 || math.Abs(idx.Data[2]-1) > 1e-5 {
		t.Fatalf("normalized NIR wrong: %v", idx.Data)
	}
}

func TestMissingBandNamed(t *testing.T) {
	bs := bandSetOf(1, 1, map[string][]float64{
		BAND_NIR: {1},
	})
	_, err := deriveIndex(bs, IndexSWIR, DefaultIndexConfig())
	if err == nil || !strings.Contains(err.Error(), BAND_SWIR1) {
		t.Fatalf("missing-band error must name %s, got %v", BAND_SWIR1, err)
	}
}

func TestUnknownIndex(t *testing.T) {
	bs := bandSetOf(1, 1, map[string][]float64{})
	if _, err := deriveIndex(bs, "EVI", DefaultIndexConfig()); err != ErrUnknownIndex {
		t.Fatalf("expected ErrUnknownIndex, got %v", err)
	}
}

func TestRGBCompositeScaling(t *testing.T) {
	bs := bandSetOf(1, 3, map[string][]float64{
		BAND_RED:   {0, 1500, 6000},
		BAND_GREEN: {0, 0, 0},
		BAND_BLUE:  {3000, 3000, 3000},
	})
	rgb, err := rgbComposite(bs)
	if err != nil {
		t.Fatal(err)
	}
	// 红通道：0、127(=1500/3000*255)、255(截断)
	if rgb[0] != 0 || rgb[1] != 127 || rgb[2] != 255 {
		t.Fatalf("red channel wrong: %v", rgb[:3])
	}
	// 蓝通道全部满反射率
	if rgb[6] != 255 || rgb[7] != 255 || rgb[8] != 255 {
		t.Fatalf("blue channel wrong: %v", rgb[6:9])
	}
}

func TestDefaultSentinel2Bands(t *testing.T) {
	cfg := DefaultSentinel2Bands()
	if cfg.Reference != BAND_RED {
		t.Fatal("reference band must be Red")
	}
	foundRef := false
	for _, id := range cfg.Required {
		if _, ok := cfg.Tiers[id]; !ok {
			t.Fatalf("required band %s has no tier", id)
		}
		if id == cfg.Reference {
			foundRef = true
		}
	}
	if !foundRef {
		t.Fatal("reference band must be required")
	}
	if cfg.Tiers[BAND_SWIR1] != R20M || cfg.Tiers[BAND_RED] != R10M {
		t.Fatal("default tier table wrong")
	}
}
