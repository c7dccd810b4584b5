package rsfusion

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wgdzlh/rsfusion/log"

	godal "github.com/airbusgeo/godal"
	"github.com/google/uuid"
	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 影像在参考坐标系（4326）下的矩形footprint
func (g *GdalToolbox) RasterFootprint(tif string) (fp Footprint, srid int, err error) {
	ds, err := g.openRaster(tif)
	if err != nil {
		return
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		ds.Close()
		err = ErrWrongTif
		return
	}
	st := ds.Structure()
	srid, err = g.rasterSrid(ds)
	ds.Close()
	if err != nil {
		return
	}
	span := spanFromTransform(gt, st.SizeX, st.SizeY)
	if srid == UNIVERSAL_SRID {
		fp = spanToFootprint(span, UNIVERSAL_SRID)
		return
	}
	ref, err := g.getSridRef(srid)
	if err != nil {
		return
	}
	tRef, err := g.getSridRef(UNIVERSAL_SRID)
	if err != nil {
		return
	}
	geo, err := g.parseWKT(SpanToWkt(span), ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	if err = geo.TransformTo(tRef); err != nil {
		log.Error(g.logTag+"footprint transform failed", zap.String("tif", tif), zap.Error(err))
		return
	}
	// 重投影后的四边形取包络，得到参考系下的轴对齐矩形
	envelop := geo.Envelope()
	fp = spanToFootprint([4]float64{envelop.MinX(), envelop.MaxX(), envelop.MinY(), envelop.MaxY()}, UNIVERSAL_SRID)
	return
}

// 计算两幅影像在参考坐标系下的公共区域。
// empty=true表示无重叠，属于正常结果而非错误，调用方应跳过后续剪切。
func (g *GdalToolbox) Overlap(tifA, tifB string) (fp Footprint, empty bool, err error) {
	fpA, _, err := g.RasterFootprint(tifA)
	if err != nil {
		return
	}
	fpB, _, err := g.RasterFootprint(tifB)
	if err != nil {
		return
	}
	ref, err := g.getSridRef(UNIVERSAL_SRID)
	if err != nil {
		return
	}
	geoA, err := g.parseWKT(fpA.Wkt(), ref)
	if err != nil {
		return
	}
	defer geoA.Destroy()
	geoB, err := g.parseWKT(fpB.Wkt(), ref)
	if err != nil {
		return
	}
	defer geoB.Destroy()
	inter := geoA.Intersection(geoB)
	defer inter.Destroy()
	if inter.IsEmpty() || inter.Area() == 0 {
		log.Info(g.logTag+"no overlapping region", zap.String("tifA", tifA), zap.String("tifB", tifB))
		empty = true
		return
	}
	envelop := inter.Envelope()
	fp = spanToFootprint([4]float64{envelop.MinX(), envelop.MaxX(), envelop.MinY(), envelop.MaxY()}, UNIVERSAL_SRID)
	log.Info(g.logTag+"got overlap footprint", zap.Any("ring", fp.Ring))
	return
}

// 将公共区域footprint转换到影像自身坐标系后掩膜剪切。
// 每幅影像必须用其自身坐标系下的几何剪切，避免复用同一投影结果引入形变。
func (g *GdalToolbox) cropToFootprint(tif, out string, fp Footprint) (err error) {
	ds, err := g.openRaster(tif)
	if err != nil {
		return
	}
	defer ds.Close()
	srid, err := g.rasterSrid(ds)
	if err != nil {
		return
	}
	ref, err := g.getSridRef(fp.Srid)
	if err != nil {
		return
	}
	geo, err := g.parseWKT(fp.Wkt(), ref)
	if err != nil {
		return
	}
	defer geo.Destroy()
	if srid != fp.Srid {
		var tRef gdal.SpatialReference
		if tRef, err = g.getSridRef(srid); err != nil {
			return
		}
		if err = geo.TransformTo(tRef); err != nil {
			log.Error(g.logTag+"overlap geo transform failed", zap.String("tif", tif), zap.Error(err))
			return
		}
	}
	if geo.IsEmpty() || geo.Area() == 0 {
		err = ErrDegenerateGeom
		return
	}
	tmpGeoJson := filepath.Join(g.tmpDir, fmt.Sprintf(TMP_GEOJSON, uuid.NewString()))
	if err = os.WriteFile(tmpGeoJson, g.geoToGeoJSON(geo), os.ModePerm); err != nil {
		return
	}
	defer os.Remove(tmpGeoJson)
	ods, err := godal.Warp(out, []*godal.Dataset{ds},
		[]string{"-cutline", tmpGeoJson, "-crop_to_cutline", "-overwrite"})
	if err != nil {
		log.Error(g.logTag+"failed to crop raster to overlap", zap.String("tif", tif), zap.Error(err))
		return
	}
	ods.Close()
	return
}

// 将两幅不同传感器影像分别剪切到公共区域。
// 其中一侧剪切失败只跳过该侧并记录，另一侧照常进行。
func (g *GdalToolbox) CropPairToOverlap(tifA, tifB, outDirA, outDirB string) (summary RunSummary, err error) {
	fp, empty, err := g.Overlap(tifA, tifB)
	if err != nil {
		return
	}
	if empty {
		summary.skip(tifA, ErrEmptyOverlap.Error())
		summary.skip(tifB, ErrEmptyOverlap.Error())
		return
	}
	for _, p := range [2]struct{ tif, outDir string }{{tifA, outDirA}, {tifB, outDirB}} {
		out := filepath.Join(p.outDir, CROPPED_PREFIX+filepath.Base(p.tif))
		if e := g.cropToFootprint(p.tif, out, fp); e != nil {
			log.Warn(g.logTag+"crop to overlap skipped", zap.String("tif", p.tif), zap.Error(e))
			summary.skip(p.tif, e.Error())
			continue
		}
		summary.done(p.tif, out)
	}
	log.Info(g.logTag+"crop pair to overlap done",
		zap.Int("processed", summary.Processed()), zap.Int("skipped", summary.Skipped()))
	return
}
