package rsfusion

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wgdzlh/rsfusion/log"
	"github.com/wgdzlh/rsfusion/utils"

	godal "github.com/airbusgeo/godal"
	"github.com/google/uuid"
	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

var fieldNameGbk, _ = utils.Utf8StrToGbk(SHP_FIELD_NAME)

// 读取矢量要素集合。要素名取name字段，字段缺失时留空由调用方按序号补齐
func (g *GdalToolbox) ReadVectorFeatures(shp string) (ret []VectorFeature, srid int, err error) {
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Open(shp, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	layer := ds.LayerByIndex(0)
	if srid, err = g.getSrid(layer.SpatialReference()); err != nil {
		return
	}
	def := layer.Definition()
	nameIdx := def.FieldIndex(SHP_FIELD_NAME)
	if nameIdx < 0 {
		nameIdx = def.FieldIndex(fieldNameGbk)
	}
	n := 128
	if nf, _ := layer.FeatureCount(false); nf > 0 {
		n = nf
	}
	ret = make([]VectorFeature, 0, n)
	var (
		feature *gdal.Feature
		wkb     []byte
		name    string
		e       error
		gc      []destroyable
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		if wkb, e = feature.Geometry().ToWKB(); e != nil || len(wkb) < 3 {
			log.Error(g.logTag+"err in wkb trans", zap.Int64("fid", feature.FID()), zap.Error(e))
			continue
		}
		name = ""
		if nameIdx >= 0 {
			name = utils.EnsureUtf8(feature.FieldAsString(nameIdx))
		}
		ret = append(ret, VectorFeature{Name: name, Geom: wkb})
	}
	if len(ret) == 0 {
		err = ErrEmptyVector
	}
	log.Info(g.logTag+"vector features loaded", zap.String("shp", shp), zap.Int("count", len(ret)))
	return
}

// 用单个要素几何掩膜剪切影像
func (g *GdalToolbox) clipToGeometry(ds *godal.Dataset, geo gdal.Geometry, out string) (err error) {
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
		return
	}
	ods.Close()
	return
}

// 将影像按矢量文件中的每个要素独立剪切，每个要素各产出一幅影像。
// 输出名 = 影像基名 + 要素名 + 日期标签（文件名中的日期，缺失时取修改时间）。
// 不与影像相交或掩膜退化的要素跳过并告警，不中断其余要素。
func (g *GdalToolbox) ClipByFeatures(tif, shp, outDir string) (summary RunSummary, err error) {
	features, shpSrid, err := g.ReadVectorFeatures(shp)
	if err != nil {
		return
	}
	ds, err := g.openRaster(tif)
	if err != nil {
		return
	}
	defer ds.Close()
	gt, err := ds.GeoTransform()
	if err != nil {
		err = ErrWrongTif
		return
	}
	srid, err := g.rasterSrid(ds)
	if err != nil {
		return
	}
	ref, err := g.getSridRef(shpSrid)
	if err != nil {
		return
	}
	tRef, err := g.getSridRef(srid)
	if err != nil {
		return
	}
	st := ds.Structure()
	span := spanFromTransform(gt, st.SizeX, st.SizeY)
	bounds, err := g.parseWKT(SpanToWkt(span), tRef)
	if err != nil {
		return
	}
	defer bounds.Destroy()
	var (
		base = utils.GetFilenameWithoutExt(tif)
		date = utils.GetFileDateTag(tif)
		gc   []destroyable
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	log.Info(g.logTag+"start clip by features", zap.String("tif", tif), zap.String("shp", shp),
		zap.Int("features", len(features)), zap.String("date", date))
	for i, f := range features {
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("feature_%d", i)
		}
		geo, e := g.parseWKB(f.Geom, ref)
		if e != nil {
			summary.skip(name, e.Error())
			continue
		}
		gc = append(gc, geo)
		if shpSrid != srid {
			if e = geo.TransformTo(tRef); e != nil {
				log.Warn(g.logTag+"feature transform failed", zap.String("feature", name), zap.Error(e))
				summary.skip(name, e.Error())
				continue
			}
		}
		if !geo.Intersects(bounds) {
			log.Warn(g.logTag+"feature outside raster extent", zap.String("feature", name))
			summary.skip(name, "no overlap with raster")
			continue
		}
		out := filepath.Join(outDir, fmt.Sprintf(CLIP_NAME_TPL, base, utils.SanitizeName(name), date))
		if e = g.clipToGeometry(ds, geo, out); e != nil {
			log.Warn(g.logTag+"clip by feature failed", zap.String("feature", name), zap.Error(e))
			summary.skip(name, e.Error())
			continue
		}
		summary.done(name, out)
	}
	log.Info(g.logTag+"clip by features done", zap.String("tif", tif),
		zap.Int("processed", summary.Processed()), zap.Int("skipped", summary.Skipped()))
	return
}
