package rsfusion

import (
	"os"
	"path/filepath"
	"testing"

	gdal "github.com/airbusgeo/godal"
)

// 有地理参考但无波段的数据集（VRT允许这种退化形态）
func writeBandlessVrt(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "bandless.vrt")
	vrt := `<VRTDataset rasterXSize="4" rasterYSize="4">` +
		`<SRS>EPSG:4326</SRS>` +
		`<GeoTransform>70, 0.01, 0, 31, 0, -0.01</GeoTransform>` +
		`</VRTDataset>`
	if err := os.WriteFile(path, []byte(vrt), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRasterImageNoBands(t *testing.T) {
	g := NewGdalToolbox()
	if _, err := g.LoadRasterImage(writeBandlessVrt(t, t.TempDir())); err != ErrWrongTif {
		t.Fatalf("expected ErrWrongTif for bandless raster, got %v", err)
	}
}

func TestTileRasterNoBands(t *testing.T) {
	dir := t.TempDir()
	g := NewGdalToolbox(dir)
	if _, err := g.TileRaster(writeBandlessVrt(t, dir), dir, TileConfig{TileSize: 2}); err != ErrWrongTif {
		t.Fatalf("expected ErrWrongTif for bandless raster, got %v", err)
	}
}

func TestTileRasterPlainTif(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.tif")
	ds, err := gdal.Create(gdal.GTiff, src, 1, gdal.Byte, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]float64, 16)
	for i := range buf {
		buf[i] = float64(i)
	}
	if err = ds.Bands()[0].IO(gdal.IOWrite, 0, 0, buf, 4, 4); err != nil {
		t.Fatal(err)
	}
	if err = ds.Close(); err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()
	g := NewGdalToolbox(dir)
	summary, err := g.TileRaster(src, outDir, TileConfig{TileSize: 2, Policy: EdgeClamp, Batch: "b1"})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Processed() != 4 || summary.Skipped() != 0 {
		t.Fatalf("plain tif must tile without georeference: %+v", summary)
	}
	for _, r := range summary.Results {
		if _, e := os.Stat(r.Output); e != nil {
			t.Fatalf("tile %s not written: %v", r.Output, e)
		}
	}
}
