package camera

import (
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

// intFeatures, floatFeatures and enumFeatures mirror the original SDK's
// three typed feature tables (spec §4.F), standing in for the Pylon/Galaxy
// integer/float/enum feature IDs with gocv.VideoCaptureProperty.
var intFeatures = map[string]gocv.VideoCaptureProperty{
	"width":        gocv.VideoCaptureFrameWidth,
	"height":       gocv.VideoCaptureFrameHeight,
	"binning":      gocv.VideoCaptureFrameWidth, // best-effort: gocv exposes no binning property directly
	"buffer_size":  gocv.VideoCaptureBufferSize,
	"iso_speed":    gocv.VideoCaptureISOSpeed,
}

var floatFeatures = map[string]gocv.VideoCaptureProperty{
	"exposure":   gocv.VideoCaptureExposure,
	"gain":       gocv.VideoCaptureGain,
	"gamma":      gocv.VideoCaptureGamma,
	"brightness": gocv.VideoCaptureBrightness,
	"contrast":   gocv.VideoCaptureContrast,
	"saturation": gocv.VideoCaptureSaturation,
	"fps":        gocv.VideoCaptureFPS,
}

var enumFeatures = map[string]struct {
	prop    gocv.VideoCaptureProperty
	symbols map[string]float64
}{
	"auto_exposure": {
		prop:    gocv.VideoCaptureAutoExposure,
		symbols: map[string]float64{"off": 0, "on": 1},
	},
	"auto_wb": {
		prop:    gocv.VideoCaptureAutoWB,
		symbols: map[string]float64{"off": 0, "on": 1},
	},
}

// validKeys lists every recognized key across all three tables, for the
// "unknown key" warning message (spec §4.F).
func validKeys() string {
	var names []string
	for k := range intFeatures {
		names = append(names, k)
	}
	for k := range floatFeatures {
		names = append(names, k)
	}
	for k := range enumFeatures {
		names = append(names, k)
	}
	return strings.Join(names, ", ")
}

// applyPair applies one lower-cased key/value pair to the open device.
// Returns (applied, error): applied is false for an unrecognized key (a
// warning, never an error — spec §4.F).
func applyPair(cap *gocv.VideoCapture, key, value string) (applied bool, err error) {
	key = strings.ToLower(key)
	if prop, ok := intFeatures[key]; ok {
		n, parseErr := strconv.ParseInt(value, 10, 64)
		if parseErr != nil {
			return true, parseErr
		}
		cap.Set(prop, float64(n))
		return true, nil
	}
	if prop, ok := floatFeatures[key]; ok {
		f, parseErr := strconv.ParseFloat(value, 64)
		if parseErr != nil {
			return true, parseErr
		}
		cap.Set(prop, f)
		return true, nil
	}
	if enum, ok := enumFeatures[key]; ok {
		v, known := enum.symbols[strings.ToLower(value)]
		if !known {
			var permitted []string
			for s := range enum.symbols {
				permitted = append(permitted, s)
			}
			return true, strconvError("unknown value '" + value + "' for '" + key + "', permitted: " + strings.Join(permitted, ", "))
		}
		cap.Set(enum.prop, v)
		return true, nil
	}
	return false, nil
}

type strconvError string

func (e strconvError) Error() string { return string(e) }
