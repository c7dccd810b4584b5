package rsfusion

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/wgdzlh/rsfusion/log"

	"go.uber.org/zap"
)

const (
	IndexNDVI  = "NDVI"
	IndexSAVI  = "SAVI"
	IndexSWIR  = "SWIR"
	IndexNIR   = "NIR"
	IndexMNDWI = "MNDWI"
)

// 各指数所需波段
var indexBands = map[string][]string{
	IndexNDVI:  {BAND_NIR, BAND_RED},
	IndexSAVI:  {BAND_NIR, BAND_RED},
	IndexSWIR:  {BAND_NIR, BAND_SWIR1},
	IndexNIR:   {BAND_NIR},
	IndexMNDWI: {BAND_GREEN, BAND_SWIR1},
}

func AllIndexNames() []string {
	return []string{IndexNDVI, IndexSAVI, IndexSWIR, IndexNIR, IndexMNDWI}
}

func (bs *BandSet) pick(names []string) (grids [][]float64, err error) {
	grids = make([][]float64, len(names))
	for i, id := range names {
		grid, ok := bs.Grids[id]
		if !ok {
			err = fmt.Errorf(ErrBandAbsentTemplate, id)
			return
		}
		grids[i] = grid
	}
	return
}

// 归一化差值 (a-b)/(a+b+eps)，eps防止除零
func normalizedDiff(a, b []float64, eps float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = (a[i] - b[i]) / (a[i] + b[i] + eps)
	}
	return out
}

func deriveIndex(bs *BandSet, name string, cfg IndexConfig) (idx Index, err error) {
	grids, err := bs.pick(indexBands[name])
	if err != nil {
		return
	}
	idx = Index{Name: name, Height: bs.Height, Width: bs.Width}
	switch name {
	case IndexNDVI:
		idx.Data = normalizedDiff(grids[0], grids[1], cfg.Epsilon)
	case IndexSAVI:
		nir, red, l := grids[0], grids[1], cfg.SoilFactor
		idx.Data = make([]float64, len(nir))
		for i := range nir {
			idx.Data[i] = (nir[i] - red[i]) / (nir[i] + red[i] + l) * (1 + l)
		}
	case IndexSWIR:
		idx.Data = normalizedDiff(grids[0], grids[1], cfg.Epsilon)
	case IndexNIR:
		nir := grids[0]
		mn, mx, _ := validMinMax(nir)
		idx.Data = make([]float64, len(nir))
		for i := range nir {
			idx.Data[i] = (nir[i] - mn) / (mx - mn + cfg.Epsilon)
		}
	case IndexMNDWI:
		idx.Data = normalizedDiff(grids[0], grids[1], cfg.Epsilon)
	default:
		err = ErrUnknownIndex
	}
	return
}

// 从同一化波段集计算光谱指数
func (g *GdalToolbox) DeriveIndex(bs *BandSet, name string, cfg IndexConfig) (idx Index, err error) {
	if idx, err = deriveIndex(bs, name, cfg); err != nil {
		log.Error(g.logTag+"derive index failed", zap.String("index", name), zap.Error(err))
		return
	}
	log.Info(g.logTag+"index derived", zap.String("index", name),
		zap.Int("width", idx.Width), zap.Int("height", idx.Height))
	return
}

// RGB合成，通道序为RED/GREEN/BLUE，按固定反射率分母缩放到8位并截断
func rgbComposite(bs *BandSet) (rgb []uint8, err error) {
	grids, err := bs.pick([]string{BAND_RED, BAND_GREEN, BAND_BLUE})
	if err != nil {
		return
	}
	n := bs.Height * bs.Width
	rgb = make([]uint8, 3*n)
	for c, grid := range grids {
		for i, v := range grid {
			p := v / RGBReflectanceScale * 255
			if p < 0 || math.IsNaN(p) {
				p = 0
			} else if p > 255 {
				p = 255
			}
			rgb[c*n+i] = uint8(p)
		}
	}
	return
}

// 输出指数为LZW压缩的单波段GeoTIFF，并附带按极值归一化的PNG渲染
func (g *GdalToolbox) SaveIndex(outDir string, idx Index, bs *BandSet) (tifPath string, err error) {
	img := &RasterImage{
		Samples:   idx.Data,
		Bands:     1,
		Height:    idx.Height,
		Width:     idx.Width,
		Transform: bs.Transform,
		Srid:      bs.Srid,
		DataType:  DTFloat32,
	}
	tifPath = filepath.Join(outDir, strings.ToLower(idx.Name)+FILE_EXT_TIF)
	if err = g.WriteRasterImage(tifPath, img, "COMPRESS=LZW"); err != nil {
		return
	}
	pngPath := strings.TrimSuffix(tifPath, FILE_EXT_TIF) + FILE_EXT_PNG
	if err = g.WriteGrayPNG(pngPath, idx.Data, idx.Width, idx.Height); err != nil {
		log.Error(g.logTag+"write index png failed", zap.String("png", pngPath), zap.Error(err))
	}
	return
}

// 输出RGB合成影像（GeoTIFF + PNG）
func (g *GdalToolbox) SaveRGBComposite(outDir string, bs *BandSet) (tifPath string, err error) {
	rgb, err := rgbComposite(bs)
	if err != nil {
		log.Error(g.logTag+"rgb composite failed", zap.Error(err))
		return
	}
	samples := make([]float64, len(rgb))
	for i, v := range rgb {
		samples[i] = float64(v)
	}
	img := &RasterImage{
		Samples:   samples,
		Bands:     3,
		Height:    bs.Height,
		Width:     bs.Width,
		Transform: bs.Transform,
		Srid:      bs.Srid,
		DataType:  DTByte,
	}
	tifPath = filepath.Join(outDir, RGB_COMPOSITE_TIF)
	if err = g.WriteRasterImage(tifPath, img); err != nil {
		return
	}
	pngPath := strings.TrimSuffix(tifPath, FILE_EXT_TIF) + FILE_EXT_PNG
	if err = g.WriteRGBPNG(pngPath, rgb, bs.Width, bs.Height); err != nil {
		log.Error(g.logTag+"write rgb png failed", zap.String("png", pngPath), zap.Error(err))
	}
	return
}

// 整景处理：加载波段、计算全部指数并连同RGB合成一起输出。
// 单个指数失败只跳过该指数，计入汇总。
func (g *GdalToolbox) ProcessScene(safeDir, outDir string, bandCfg BandTierConfig, idxCfg IndexConfig) (summary RunSummary, err error) {
	bs, err := g.LoadBandSet(safeDir, bandCfg)
	if err != nil {
		return
	}
	for _, name := range AllIndexNames() {
		idx, e := g.DeriveIndex(bs, name, idxCfg)
		if e != nil {
			summary.skip(name, e.Error())
			continue
		}
		out, e := g.SaveIndex(outDir, idx, bs)
		if e != nil {
			summary.skip(name, e.Error())
			continue
		}
		summary.done(name, out)
	}
	if out, e := g.SaveRGBComposite(outDir, bs); e != nil {
		summary.skip("RGB", e.Error())
	} else {
		summary.done("RGB", out)
	}
	log.Info(g.logTag+"scene processed", zap.String("scene", safeDir),
		zap.Int("processed", summary.Processed()), zap.Int("skipped", summary.Skipped()))
	return
}
