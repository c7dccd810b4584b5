package rsfusion

import (
	"fmt"
	"path/filepath"

	"github.com/wgdzlh/rsfusion/log"
	"github.com/wgdzlh/rsfusion/utils"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// 边缘策略
type EdgePolicy int

const (
	EdgeClamp    EdgePolicy = iota // 末尾瓦片缩小到剩余像素
	EdgeTruncate                   // 只输出完整瓦片，残余条带丢弃
)

// 栅格布局，在打开影像时判定一次，每种布局对应唯一的切片流程
type RasterLayout int

const (
	LayoutSingleBand            RasterLayout = iota // 单波段2D
	LayoutMultiChannel                              // 3-4通道，整体切片
	LayoutMultiPage                                 // 多页独立单波段，按页切片
	LayoutMultiPageMultiChannel                     // 多页多通道，按页整体切片
	LayoutLabeledBands                              // 具名纹理波段（如GLCM），按波段独立输出
)

// pageChannels>1 时把波段视为若干个等宽通道组（页），须整除波段数
func DetectLayout(nBands int, labeled bool, pageChannels int) RasterLayout {
	switch {
	case labeled && nBands > 1:
		return LayoutLabeledBands
	case pageChannels > 1 && nBands > pageChannels && nBands%pageChannels == 0:
		return LayoutMultiPageMultiChannel
	case nBands == 1:
		return LayoutSingleBand
	case nBands == 3 || nBands == 4:
		return LayoutMultiChannel
	default:
		return LayoutMultiPage
	}
}

// 单个切片窗口。Row/ColBlock为行列块序号，X/Y为像素偏移
type TileWindow struct {
	RowBlock int
	ColBlock int
	X, Y     int
	W, H     int
}

// 将栅格范围按tileSize划分为确定性的行优先窗口序列
func TileWindows(width, height, tileSize int, policy EdgePolicy) (wins []TileWindow, err error) {
	if tileSize <= 0 {
		err = ErrBadTileSize
		return
	}
	rows, cols := height/tileSize, width/tileSize
	if policy == EdgeClamp {
		if height%tileSize > 0 {
			rows++
		}
		if width%tileSize > 0 {
			cols++
		}
	}
	wins = make([]TileWindow, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			win := TileWindow{
				RowBlock: r,
				ColBlock: c,
				X:        c * tileSize,
				Y:        r * tileSize,
				W:        tileSize,
				H:        tileSize,
			}
			if policy == EdgeClamp {
				if rest := width - win.X; rest < tileSize {
					win.W = rest
				}
				if rest := height - win.Y; rest < tileSize {
					win.H = rest
				}
			}
			wins = append(wins, win)
		}
	}
	return
}

// 无地理参考影像切片时充当像素单位变换
var identityTransform = [6]float64{0, 1, 0, 0, 0, 1}

// 窗口左上角对应的geotransform
func windowTransform(gt [6]float64, x, y int) (out [6]float64) {
	out = gt
	fx, fy := float64(x), float64(y)
	out[0] = gt[0] + fx*gt[1] + fy*gt[2]
	out[3] = gt[3] + fx*gt[4] + fy*gt[5]
	return
}

// 切片输出命名，（源名、页/波段标签、行列、批次）联合唯一
func tileName(base string, layout RasterLayout, page int, label string, win TileWindow, batch string) string {
	switch layout {
	case LayoutLabeledBands:
		return fmt.Sprintf(TILE_BAND_NAME_TPL, base, label, win.X, win.Y, batch)
	case LayoutMultiPage, LayoutMultiPageMultiChannel:
		return fmt.Sprintf(TILE_SLICE_NAME_TPL, base, page, win.RowBlock, win.ColBlock, batch)
	default:
		return fmt.Sprintf(TILE_NAME_TPL, base, win.RowBlock, win.ColBlock, batch)
	}
}

// 切片配置
type TileConfig struct {
	TileSize     int
	Policy       EdgePolicy
	BandLabels   map[int]string // 非空时按具名波段独立切片（波段序号从1开始）
	PageChannels int            // 多页多通道源的每页通道数，0表示非多页多通道
	Batch        string         // 批次标签，空则取当前时间
}

type tileJob struct {
	name  string
	bands []int // 源波段序号（从0开始）
}

// 将影像切分为固定尺寸的瓦片并逐个写出。
// 单个瓦片失败只记录跳过，整个批次总是跑完。
func (g *GdalToolbox) TileRaster(tif, outDir string, cfg TileConfig) (summary RunSummary, err error) {
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
	// 无地理参考的普通tif照常切片，窗口偏移按像素单位变换推算，只是不写投影
	gt, gtErr := ds.GeoTransform()
	if gtErr != nil {
		gt = identityTransform
	}
	srid, sErr := g.rasterSrid(ds)
	if sErr != nil || gtErr != nil {
		srid = 0
	}
	if cfg.TileSize == 0 {
		cfg.TileSize = DefaultTileSize
	}
	wins, err := TileWindows(st.SizeX, st.SizeY, cfg.TileSize, cfg.Policy)
	if err != nil {
		return
	}
	var (
		base   = utils.SanitizeName(utils.GetFilenameWithoutExt(tif))
		batch  = cfg.Batch
		layout = DetectLayout(st.NBands, len(cfg.BandLabels) > 0, cfg.PageChannels)
		bands  = ds.Bands()
		nodata *float64
	)
	if batch == "" {
		batch = utils.GetBatchTimeTag()
	}
	if nd, ok := bands[0].NoData(); ok {
		nodata = &nd
	}
	log.Info(g.logTag+"start tiling", zap.String("tif", tif), zap.Int("layout", int(layout)),
		zap.Int("windows", len(wins)), zap.Int("bands", st.NBands), zap.String("batch", batch))
	for _, win := range wins {
		for _, job := range tileJobs(base, layout, st.NBands, cfg.PageChannels, cfg.BandLabels, win, batch) {
			out := filepath.Join(outDir, job.name)
			if e := g.writeTile(bands, job.bands, win, out, st.DataType, gt, srid, gtErr == nil, nodata); e != nil {
				log.Warn(g.logTag+"tile skipped", zap.String("tile", job.name), zap.Error(e))
				summary.skip(job.name, e.Error())
				continue
			}
			summary.done(job.name, out)
		}
	}
	log.Info(g.logTag+"tiling done", zap.String("tif", tif),
		zap.Int("processed", summary.Processed()), zap.Int("skipped", summary.Skipped()))
	return
}

// 按布局展开一个窗口要输出的瓦片
func tileJobs(base string, layout RasterLayout, nBands, pageChannels int, labels map[int]string, win TileWindow, batch string) (jobs []tileJob) {
	switch layout {
	case LayoutLabeledBands:
		for i := 0; i < nBands; i++ {
			label, ok := labels[i+1]
			if !ok {
				label = fmt.Sprintf("Band_%d", i+1)
			}
			jobs = append(jobs, tileJob{
				name:  tileName(base, layout, 0, label, win, batch),
				bands: []int{i},
			})
		}
	case LayoutMultiPage:
		for i := 0; i < nBands; i++ {
			jobs = append(jobs, tileJob{
				name:  tileName(base, layout, i, "", win, batch),
				bands: []int{i},
			})
		}
	case LayoutMultiPageMultiChannel:
		for p := 0; p < nBands/pageChannels; p++ {
			group := make([]int, pageChannels)
			for c := range group {
				group[c] = p*pageChannels + c
			}
			jobs = append(jobs, tileJob{
				name:  tileName(base, layout, p, "", win, batch),
				bands: group,
			})
		}
	default:
		all := make([]int, nBands)
		for i := range all {
			all[i] = i
		}
		jobs = []tileJob{{name: tileName(base, layout, 0, "", win, batch), bands: all}}
	}
	return
}

func (g *GdalToolbox) writeTile(bands []gdal.Band, picked []int, win TileWindow, out string,
	dt gdal.DataType, gt [6]float64, srid int, geoRef bool, nodata *float64) (err error) {
	ods, err := gdal.Create(gdal.GTiff, out, len(picked), dt, win.W, win.H)
	if err != nil {
		return
	}
	defer ods.Close()
	if geoRef {
		if err = ods.SetGeoTransform(windowTransform(gt, win.X, win.Y)); err != nil {
			return
		}
	}
	if srid > 0 {
		var sr *gdal.SpatialRef
		if sr, err = gdal.NewSpatialRefFromEPSG(srid); err != nil {
			return
		}
		if err = ods.SetSpatialRef(sr); err != nil {
			sr.Close()
			return
		}
		sr.Close()
	}
	buf := make([]float64, win.W*win.H)
	for i, src := range picked {
		if err = bands[src].IO(gdal.IORead, win.X, win.Y, buf, win.W, win.H); err != nil {
			return
		}
		oband := ods.Bands()[i]
		if nodata != nil {
			if err = oband.SetNoData(*nodata); err != nil {
				return
			}
		}
		if err = oband.IO(gdal.IOWrite, 0, 0, buf, win.W, win.H); err != nil {
			return
		}
	}
	return
}
