package rsfusion

import (
	"math"
	"strings"
	"testing"
)

func TestNewGdalToolbox(t *testing.T) {
	g := NewGdalToolbox("/tmp")
	if g == nil {
		t.Fatal()
	}
	if g.tmpDir != "/tmp" {
		t.Fatal("tmp dir not set")
	}
}

func TestPointsToWkt(t *testing.T) {
	wkt := PointsToWkt(70, 71, 30, 31)
	if !strings.HasPrefix(wkt, "POLYGON((") || !strings.HasSuffix(wkt, "))") {
		t.Fatal(wkt)
	}
	if strings.Count(wkt, ",") != 4 {
		t.Fatalf("rect wkt must have 5 points: %s", wkt)
	}
	if SpanToWkt([4]float64{70, 71, 30, 31}) != wkt {
		t.Fatal("span wkt must match point wkt")
	}
}

func TestGetWktSpan(t *testing.T) {
	g := NewGdalToolbox()
	span, err := g.GetWktSpan(PointsToWkt(70, 71, 30, 31), UNIVERSAL_SRID)
	if err != nil {
		t.Fatal(err)
	}
	if span != [4]float64{70, 71, 30, 31} {
		t.Fatalf("wkt span wrong: %v", span)
	}
}

func TestValidMinMax(t *testing.T) {
	mn, mx, ok := validMinMax([]float64{3, math.NaN(), -1, 7})
	if !ok || mn != -1 || mx != 7 {
		t.Fatalf("minmax wrong: %f %f %v", mn, mx, ok)
	}
	if _, _, ok = validMinMax([]float64{math.NaN()}); ok {
		t.Fatal("all-invalid input must report not ok")
	}
}

func TestRunSummary(t *testing.T) {
	var s RunSummary
	s.done("a", "out/a.tif")
	s.skip("b", "no overlap")
	s.done("c", "out/c.tif")
	if s.Processed() != 2 || s.Skipped() != 1 {
		t.Fatalf("summary counts wrong: %+v", s)
	}
	if !s.Results[1].Skipped || s.Results[1].Reason != "no overlap" {
		t.Fatal("skip reason must be recorded")
	}
}
