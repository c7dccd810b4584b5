package rsfusion

import "fmt"

type GdalGeo = []byte

type AnyJson = []byte

// 像素数据类型标签，写出时映射到GDAL类型
type DType int

const (
	DTFloat32 DType = iota
	DTFloat64
	DTByte
	DTInt16
	DTUInt16
)

// 内存中的栅格影像。每个处理阶段都返回新的RasterImage，
// 不跨阶段原地修改，形状变化时必须同步更新Transform。
type RasterImage struct {
	Samples   []float64  // band-major，长度 = Bands*Height*Width
	Bands     int
	Height    int
	Width     int
	Transform [6]float64 // GDAL geotransform
	Srid      int
	DataType  DType
	NoData    *float64
}

// 取第i个波段（从0开始）的切片视图
func (r *RasterImage) Band(i int) []float64 {
	n := r.Height * r.Width
	return r.Samples[i*n : (i+1)*n]
}

func (r *RasterImage) SameGrid(o *RasterImage) bool {
	return r.Height == o.Height && r.Width == o.Width && r.Transform == o.Transform
}

// 影像在自身坐标系下的范围 [minX, maxX, minY, maxY]
func (r *RasterImage) Span() (span [4]float64) {
	return spanFromTransform(r.Transform, r.Width, r.Height)
}

func spanFromTransform(gt [6]float64, width, height int) (span [4]float64) {
	w, h := float64(width), float64(height)
	x0, y0 := gt[0], gt[3]
	x1 := gt[0] + w*gt[1] + h*gt[2]
	y1 := gt[3] + w*gt[4] + h*gt[5]
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	span = [4]float64{x0, x1, y0, y1}
	return
}

// 矩形footprint（参考坐标系中的闭合环）
type Footprint struct {
	Ring [][2]float64
	Srid int
}

func (f Footprint) Wkt() string {
	if len(f.Ring) == 0 {
		return ""
	}
	wkt := "POLYGON(("
	for i, p := range f.Ring {
		if i > 0 {
			wkt += ", "
		}
		wkt += fmt.Sprintf("%f %f", p[0], p[1])
	}
	return wkt + "))"
}

func spanToFootprint(span [4]float64, srid int) Footprint {
	return Footprint{
		Ring: [][2]float64{
			{span[0], span[2]},
			{span[0], span[3]},
			{span[1], span[3]},
			{span[1], span[2]},
			{span[0], span[2]},
		},
		Srid: srid,
	}
}

// 同一化后的波段集合，所有波段共享参考网格
type BandSet struct {
	Grids     map[string][]float64
	Height    int
	Width     int
	Transform [6]float64
	Srid      int
	NoData    *float64
}

// 单个光谱指数结果
type Index struct {
	Name   string
	Data   []float64
	Height int
	Width  int
}

// 矢量要素，只读
type VectorFeature struct {
	Name string
	Geom GdalGeo // WKB
}

// 批处理中单个条目的结果
type ItemResult struct {
	Item    string
	Output  string
	Skipped bool
	Reason  string
}

// 批处理汇总。批次总是跑完，单个条目失败记入Skipped
type RunSummary struct {
	Results []ItemResult
}

func (s *RunSummary) done(item, output string) {
	s.Results = append(s.Results, ItemResult{Item: item, Output: output})
}

func (s *RunSummary) skip(item, reason string) {
	s.Results = append(s.Results, ItemResult{Item: item, Skipped: true, Reason: reason})
}

func (s *RunSummary) Processed() (n int) {
	for _, r := range s.Results {
		if !r.Skipped {
			n++
		}
	}
	return
}

func (s *RunSummary) Skipped() (n int) {
	return len(s.Results) - s.Processed()
}
