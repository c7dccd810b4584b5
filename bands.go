package rsfusion

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wgdzlh/rsfusion/log"

	gdal "github.com/airbusgeo/godal"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 在场景目录中按波段id与分辨率档位定位源文件
func (g *GdalToolbox) findBandFile(safeDir, tier, bandId string) (path string, err error) {
	granules, err := filepath.Glob(filepath.Join(safeDir, "GRANULE", "L2A_*"))
	if err != nil || len(granules) == 0 {
		err = ErrNoGranule
		return
	}
	imgData := filepath.Join(granules[0], "IMG_DATA")
	matches, err := filepath.Glob(filepath.Join(imgData, tier, "*_"+bandId+"_*.jp2"))
	if err != nil || len(matches) == 0 {
		err = fmt.Errorf(ErrBandNoFileTemplate, bandId, imgData)
		return
	}
	path = matches[0]
	return
}

type bandGrid struct {
	data   []float64
	width  int
	height int
	gt     [6]float64
	srid   int
	nodata *float64
}

// 读取单波段，outW/outH非零时双线性重采样到指定网格
func (g *GdalToolbox) readBand(path string, outW, outH int) (grid bandGrid, err error) {
	ds, err := g.openRaster(path)
	if err != nil {
		return
	}
	defer ds.Close()
	st := ds.Structure()
	if outW > 0 && (outW != st.SizeX || outH != st.SizeY) {
		// 放大系数由实际源尺寸推出，而非写死档位倍率
		log.Info(g.logTag+"resample band on read", zap.String("band", path),
			zap.Float64("scaleX", float64(outW)/float64(st.SizeX)),
			zap.Float64("scaleY", float64(outH)/float64(st.SizeY)))
		tmp := filepath.Join(g.tmpDir, fmt.Sprintf(TMP_RESAMPLE, uuid.NewString()))
		defer os.Remove(tmp)
		var rds *gdal.Dataset
		rds, err = ds.Translate(tmp, []string{
			"-outsize", strconv.Itoa(outW), strconv.Itoa(outH),
			"-r", "bilinear",
		})
		if err != nil {
			log.Error(g.logTag+"resample band failed", zap.String("band", path), zap.Error(err))
			err = ErrTifReadFailed
			return
		}
		defer rds.Close()
		return g.readBandDirect(rds, path)
	}
	return g.readBandDirect(ds, path)
}

func (g *GdalToolbox) readBandDirect(ds *gdal.Dataset, path string) (grid bandGrid, err error) {
	st := ds.Structure()
	if st.NBands < 1 {
		err = ErrWrongTif
		return
	}
	if grid.gt, err = ds.GeoTransform(); err != nil {
		err = ErrWrongTif
		return
	}
	if grid.srid, err = g.rasterSrid(ds); err != nil {
		return
	}
	band := ds.Bands()[0]
	if nd, ok := band.NoData(); ok {
		grid.nodata = &nd
	}
	grid.width, grid.height = st.SizeX, st.SizeY
	grid.data = make([]float64, st.SizeX*st.SizeY)
	if err = band.IO(gdal.IORead, 0, 0, grid.data, st.SizeX, st.SizeY); err != nil {
		log.Error(g.logTag+"read band failed", zap.String("band", path), zap.Error(err))
		err = ErrTifReadFailed
	}
	return
}

// 加载一景的全部所需波段，并将粗分辨率档位的波段双线性重采样到参考网格。
// 任一所需波段缺失即为致命错误；参考波段提供整个BandSet的地理参考。
func (g *GdalToolbox) LoadBandSet(safeDir string, cfg BandTierConfig) (bs *BandSet, err error) {
	refTier, ok := cfg.Tiers[cfg.Reference]
	if !ok {
		err = fmt.Errorf(ErrBandNoFileTemplate, cfg.Reference, safeDir)
		return
	}
	refPath, err := g.findBandFile(safeDir, refTier, cfg.Reference)
	if err != nil {
		return
	}
	ref, err := g.readBand(refPath, 0, 0)
	if err != nil {
		return
	}
	bs = &BandSet{
		Grids:     map[string][]float64{cfg.Reference: ref.data},
		Height:    ref.height,
		Width:     ref.width,
		Transform: ref.gt,
		Srid:      ref.srid,
		NoData:    ref.nodata,
	}
	for _, id := range cfg.Required {
		if id == cfg.Reference {
			continue
		}
		tier, ok := cfg.Tiers[id]
		if !ok {
			err = fmt.Errorf(ErrBandNoFileTemplate, id, safeDir)
			return
		}
		var (
			path string
			grid bandGrid
		)
		if path, err = g.findBandFile(safeDir, tier, id); err != nil {
			return
		}
		outW, outH := 0, 0
		if tier != refTier {
			outW, outH = bs.Width, bs.Height
		}
		if grid, err = g.readBand(path, outW, outH); err != nil {
			return
		}
		if grid.width != bs.Width || grid.height != bs.Height {
			err = ErrShapeMismatch
			return
		}
		bs.Grids[id] = grid.data
	}
	log.Info(g.logTag+"band set loaded", zap.String("scene", safeDir),
		zap.Int("bands", len(bs.Grids)), zap.Int("width", bs.Width), zap.Int("height", bs.Height))
	return
}
