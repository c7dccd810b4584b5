package rsfusion

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/wgdzlh/rsfusion/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

func (d DType) gdalType() gdal.DataType {
	switch d {
	case DTFloat64:
		return gdal.Float64
	case DTByte:
		return gdal.Byte
	case DTInt16:
		return gdal.Int16
	case DTUInt16:
		return gdal.UInt16
	default:
		return gdal.Float32
	}
}

func dtypeOfBand(dt gdal.DataType) DType {
	switch dt {
	case gdal.Float64:
		return DTFloat64
	case gdal.Byte:
		return DTByte
	case gdal.Int16:
		return DTInt16
	case gdal.UInt16:
		return DTUInt16
	default:
		return DTFloat32
	}
}

func (g *GdalToolbox) openRaster(tif string) (ds *gdal.Dataset, err error) {
	ds, err = gdal.Open(tif, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open tif failed", zap.String("tif", tif), zap.Error(err))
		err = ErrInvalidTif
	}
	return
}

func (g *GdalToolbox) rasterSrid(ds *gdal.Dataset) (srid int, err error) {
	sr := ds.SpatialRef()
	if sr == nil {
		err = ErrVoidSrid
		return
	}
	wkt, err := sr.WKT()
	if err != nil {
		err = ErrVoidSrid
		return
	}
	return g.sridFromProjWkt(wkt)
}

// 读取整幅影像到内存，所有波段转为float64
func (g *GdalToolbox) LoadRasterImage(tif string) (img *RasterImage, err error) {
	ds, err := g.openRaster(tif)
	if err != nil {
		return
	}
	defer ds.Close()
	st := ds.Structure()
	if st.NBands < 1 {
		err = ErrWrongTif
		return
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		log.Error(g.logTag+"tif has no geotransform", zap.String("tif", tif), zap.Error(err))
		err = ErrWrongTif
		return
	}
	srid, err := g.rasterSrid(ds)
	if err != nil {
		return
	}
	bands := ds.Bands()
	img = &RasterImage{
		Samples:   make([]float64, st.NBands*st.SizeY*st.SizeX),
		Bands:     st.NBands,
		Height:    st.SizeY,
		Width:     st.SizeX,
		Transform: gt,
		Srid:      srid,
		DataType:  dtypeOfBand(st.DataType),
	}
	if nd, ok := bands[0].NoData(); ok {
		img.NoData = &nd
	}
	for i := range bands {
		if err = bands[i].IO(gdal.IORead, 0, 0, img.Band(i), st.SizeX, st.SizeY); err != nil {
			log.Error(g.logTag+"read tif band failed", zap.String("tif", tif), zap.Int("band", i), zap.Error(err))
			err = ErrTifReadFailed
			return
		}
	}
	return
}

// 写出GeoTIFF。creationOpts为GDAL创建选项（如COMPRESS=LZW）
func (g *GdalToolbox) WriteRasterImage(tif string, img *RasterImage, creationOpts ...string) (err error) {
	ds, err := gdal.Create(gdal.GTiff, tif, img.Bands, img.DataType.gdalType(), img.Width, img.Height,
		gdal.CreationOption(creationOpts...))
	if err != nil {
		log.Error(g.logTag+"create tif failed", zap.String("tif", tif), zap.Error(err))
		err = ErrTifWriteFailed
		return
	}
	defer ds.Close()
	if err = ds.SetGeoTransform(img.Transform); err != nil {
		err = ErrTifWriteFailed
		return
	}
	sr, err := gdal.NewSpatialRefFromEPSG(img.Srid)
	if err != nil {
		err = ErrTifWriteFailed
		return
	}
	defer sr.Close()
	if err = ds.SetSpatialRef(sr); err != nil {
		err = ErrTifWriteFailed
		return
	}
	for i, band := range ds.Bands() {
		if img.NoData != nil {
			if err = band.SetNoData(*img.NoData); err != nil {
				err = ErrTifWriteFailed
				return
			}
		}
		if err = band.IO(gdal.IOWrite, 0, 0, img.Band(i), img.Width, img.Height); err != nil {
			log.Error(g.logTag+"write tif band failed", zap.String("tif", tif), zap.Int("band", i), zap.Error(err))
			err = ErrTifWriteFailed
			return
		}
	}
	log.Info(g.logTag+"tif written", zap.String("tif", tif), zap.Int("bands", img.Bands),
		zap.Int("width", img.Width), zap.Int("height", img.Height))
	return
}

// 将单波段网格按自身极值归一化到[0,255]，渲染为灰度PNG
func (g *GdalToolbox) WriteGrayPNG(path string, data []float64, width, height int) (err error) {
	mn, mx, ok := validMinMax(data)
	scale := 0.0
	if ok && mx > mn {
		scale = 255 / (mx - mn)
	}
	im := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := data[y*width+x]
			if math.IsNaN(v) {
				continue
			}
			p := (v - mn) * scale
			if p < 0 {
				p = 0
			} else if p > 255 {
				p = 255
			}
			im.SetGray(x, y, color.Gray{Y: uint8(p)})
		}
	}
	return writePNG(path, im)
}

// 渲染RGB合成影像为PNG，rgb为band-major的8位三通道数据
func (g *GdalToolbox) WriteRGBPNG(path string, rgb []uint8, width, height int) (err error) {
	n := width * height
	im := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			im.SetNRGBA(x, y, color.NRGBA{R: rgb[i], G: rgb[n+i], B: rgb[2*n+i], A: 255})
		}
	}
	return writePNG(path, im)
}

func writePNG(path string, im image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()
	return png.Encode(f, im)
}

// 极值计算，忽略NaN等无效值
func validMinMax(xs []float64) (mn, mx float64, ok bool) {
	mn, mx = math.Inf(1), math.Inf(-1)
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
		ok = true
	}
	return
}
