package rsfusion

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/wgdzlh/rsfusion/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// 融合目标网格参数
type FuseConfig struct {
	TargetSrid       int
	TargetResolution float64 // 目标像元大小，目标坐标系单位
}

// 将单幅影像重投影到目标坐标系与分辨率。
// 重采样固定用最近邻，保证指数/分类类离散值不被混合。
func (g *GdalToolbox) ReprojectRaster(in, out string, cfg FuseConfig) (err error) {
	ds, err := g.openRaster(in)
	if err != nil {
		return
	}
	defer ds.Close()
	res := strconv.FormatFloat(cfg.TargetResolution, 'f', -1, 64)
	ods, err := gdal.Warp(out, []*gdal.Dataset{ds}, []string{
		"-t_srs", fmt.Sprintf("epsg:%d", cfg.TargetSrid),
		"-tr", res, res,
		"-r", "near",
		"-overwrite",
	})
	if err != nil {
		log.Error(g.logTag+"reproject raster failed", zap.String("tif", in), zap.Error(err))
		return
	}
	ods.Close()
	log.Info(g.logTag+"raster reprojected", zap.String("tif", in), zap.String("out", out),
		zap.Int("srid", cfg.TargetSrid), zap.Float64("res", cfg.TargetResolution))
	return
}

// 按输入顺序将多幅已对齐影像的首波段堆叠为一幅多波段影像。
// 地理参考取自第一幅；网格或变换不一致为致命错误，堆叠环节不做隐式对齐。
func (g *GdalToolbox) StackRasters(ins []string, out string) (stacked *RasterImage, err error) {
	if len(ins) == 0 {
		err = ErrNoFusionInput
		return
	}
	var first *RasterImage
	layers := make([][]float64, len(ins))
	for i, in := range ins {
		var img *RasterImage
		if img, err = g.LoadRasterImage(in); err != nil {
			return
		}
		if first == nil {
			first = img
		} else if !img.SameGrid(first) {
			log.Error(g.logTag+"stack input misaligned", zap.String("tif", in),
				zap.Int("width", img.Width), zap.Int("height", img.Height))
			err = ErrShapeMismatch
			return
		}
		layers[i] = img.Band(0)
	}
	n := first.Height * first.Width
	stacked = &RasterImage{
		Samples:   make([]float64, len(ins)*n),
		Bands:     len(ins),
		Height:    first.Height,
		Width:     first.Width,
		Transform: first.Transform,
		Srid:      first.Srid,
		DataType:  DTFloat32,
		NoData:    first.NoData,
	}
	for i, layer := range layers {
		copy(stacked.Samples[i*n:(i+1)*n], layer)
	}
	if err = g.WriteRasterImage(out, stacked); err != nil {
		return
	}
	log.Info(g.logTag+"rasters stacked", zap.Int("bands", len(ins)), zap.String("out", out),
		zap.Any("span", stacked.Span()))
	return
}

// 全局min-max归一化到[0,1]，极值取所有波段合并后的单一最小/最大值。
// 全图等值时分母为零，按约定输出全零而不是NaN。
func normalizeStack(data []float64) (out []float64) {
	out = make([]float64, len(data))
	if len(data) == 0 {
		return
	}
	mn, mx := floats.Min(data), floats.Max(data)
	if mx == mn {
		return
	}
	scale := 1 / (mx - mn)
	for i, v := range data {
		out[i] = (v - mn) * scale
	}
	return
}

// 对多波段影像整体做全局归一化并写出
func (g *GdalToolbox) NormalizeRaster(in, out string) (err error) {
	img, err := g.LoadRasterImage(in)
	if err != nil {
		return
	}
	norm := &RasterImage{
		Samples:   normalizeStack(img.Samples),
		Bands:     img.Bands,
		Height:    img.Height,
		Width:     img.Width,
		Transform: img.Transform,
		Srid:      img.Srid,
		DataType:  DTFloat32,
	}
	return g.WriteRasterImage(out, norm)
}

// 融合管线：逐幅重投影 → 堆叠 → 全局归一化。
// 波段次序即输入次序，任一输入失败都会破坏次序约定，故对整个融合运行是致命的。
func (g *GdalToolbox) Fuse(sources []string, outDir string, cfg FuseConfig) (stacked, normalized string, err error) {
	if len(sources) == 0 {
		err = ErrNoFusionInput
		return
	}
	resampled := make([]string, len(sources))
	for i, src := range sources {
		out := filepath.Join(outDir, RESAMPLED_PREFIX+filepath.Base(src))
		if err = g.ReprojectRaster(src, out, cfg); err != nil {
			return
		}
		resampled[i] = out
	}
	stacked = filepath.Join(outDir, FUSED_STACK_TIF)
	if _, err = g.StackRasters(resampled, stacked); err != nil {
		return
	}
	normalized = filepath.Join(outDir, FUSED_NORM_TIF)
	if err = g.NormalizeRaster(stacked, normalized); err != nil {
		return
	}
	log.Info(g.logTag+"fusion done", zap.Int("sources", len(sources)),
		zap.String("stacked", stacked), zap.String("normalized", normalized))
	return
}
