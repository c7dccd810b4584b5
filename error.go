package rsfusion

import "errors"

var (
	ErrGdalDriverOpen = errors.New("gdal driver open err")
	ErrVoidSrid       = errors.New("raster with void srid")
	ErrInvalidWKT     = errors.New("invalid WKT")
	ErrInvalidTif     = errors.New("invalid tif")
	ErrWrongTif       = errors.New("malformed tif")
	ErrTifReadFailed  = errors.New("tif read failed")
	ErrTifWriteFailed = errors.New("tif write failed")
	ErrEmptyOverlap   = errors.New("no overlapping region between rasters")
	ErrShapeMismatch  = errors.New("raster grids have mismatched shape")
	ErrUnknownIndex   = errors.New("unknown spectral index")
	ErrNoGranule      = errors.New("no granule dir in scene")
	ErrNoFusionInput  = errors.New("no input rasters to fuse")
	ErrBadTileSize    = errors.New("tile size must be positive")
	ErrEmptyVector    = errors.New("vector file has no features")
	ErrDegenerateGeom = errors.New("degenerate masking geometry")
)
