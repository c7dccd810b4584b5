package rsfusion

const (
	FILE_EXT_TIF = ".tif"
	FILE_EXT_PNG = ".png"

	SHP_DRIVER_NAME = "ESRI Shapefile"

	UNIVERSAL_SRID = 4326

	SHP_FIELD_NAME = "name"

	TMP_GEOJSON  = "geo_%s.json"
	TMP_RESAMPLE = "resample_%s.tif"

	// 指数计算常量
	DefaultEpsilon    = 1e-6
	DefaultSoilFactor = 0.5
	// RGB合成影像的反射率缩放分母
	RGBReflectanceScale = 3000

	// 固定输出文件名（指数文件名为指数名小写 + .tif）
	RGB_COMPOSITE_TIF = "rgb_composite.tif"
	FUSED_STACK_TIF   = "fused_stack.tif"
	FUSED_NORM_TIF    = "fused_stack_normalized.tif"

	RESAMPLED_PREFIX = "resampled_"
	CROPPED_PREFIX   = "cropped_"

	// 切片与剪切输出命名模板
	TILE_NAME_TPL       = "%s_crop_%d_%d_%s" + FILE_EXT_TIF         // base, row, col, batch
	TILE_SLICE_NAME_TPL = "%s_slice%d_crop_%d_%d_%s" + FILE_EXT_TIF // base, page, row, col, batch
	TILE_BAND_NAME_TPL  = "%s_%s_%d_%d_%s" + FILE_EXT_TIF           // base, label, col, row, batch
	CLIP_NAME_TPL       = "%s_%s_%s" + FILE_EXT_TIF                 // base, feature, date

	ErrBandAbsentTemplate = `band %s absent from band set`
	ErrBandNoFileTemplate = `no source file for band %s under %s`

	DefaultTileSize = 1024

	R10M = "R10m"
	R20M = "R20m"

	REFERENCE_BAND = "B04"

	BAND_BLUE  = "B02"
	BAND_GREEN = "B03"
	BAND_RED   = "B04"
	BAND_NIR   = "B08"
	BAND_SWIR1 = "B11"
	BAND_SWIR2 = "B12"
)

// 波段分辨率档位表。作为显式配置传入，而非包级共享状态，
// 以便不同传感器代次可各自携带不同的档位表并发运行。
type BandTierConfig struct {
	Tiers     map[string]string // band id -> 分辨率目录（R10m/R20m）
	Reference string            // 提供共享地理参考的波段
	Required  []string          // 必须全部加载的波段
}

// Sentinel-2 L2A 默认档位表
func DefaultSentinel2Bands() BandTierConfig {
	return BandTierConfig{
		Tiers: map[string]string{
			BAND_BLUE:  R10M,
			BAND_GREEN: R10M,
			BAND_RED:   R10M,
			BAND_NIR:   R10M,
			BAND_SWIR1: R20M,
			BAND_SWIR2: R20M,
		},
		Reference: REFERENCE_BAND,
		Required:  []string{BAND_BLUE, BAND_GREEN, BAND_RED, BAND_NIR, BAND_SWIR1, BAND_SWIR2},
	}
}

// 指数计算参数
type IndexConfig struct {
	Epsilon    float64
	SoilFactor float64 // SAVI 土壤调节因子 L
}

func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		Epsilon:    DefaultEpsilon,
		SoilFactor: DefaultSoilFactor,
	}
}

// GLCM 纹理层默认命名，波段序号从1开始
func DefaultGlcmLabels() map[int]string {
	return map[int]string{
		1:  "Contrast",
		2:  "Dissimilarity",
		3:  "Homogeneity",
		4:  "ASM",
		5:  "Energy",
		6:  "Max",
		7:  "Entropy",
		8:  "GLCM_Mean",
		9:  "GLCM_Variance",
		10: "GLCM_Correlation",
	}
}
