package config

import "sort"

// Presets are output profiles; only ImageFormat, TipTiltFile and Plot are used.
var Presets = map[string]*Config{
	"screen": {
		ImageFormat: "png", TipTiltFile: DefaultTipTiltFile,
		Plot: PlotConfig{Width: DefaultPlotWidth, Height: DefaultPlotHeight},
	},
	"print": {
		ImageFormat: "pdf", TipTiltFile: DefaultTipTiltFile,
		Plot: PlotConfig{Width: 21.0, Height: 14.8},
	},
	"web": {
		ImageFormat: "svg", TipTiltFile: "calib_tip_tilt_actuation.svg",
		Plot: PlotConfig{Width: 20.0, Height: 15.0},
	},
	"thumb": {
		ImageFormat: "png", TipTiltFile: "calib_tip_tilt_actuation.png",
		Plot: PlotConfig{Width: 8.0, Height: 6.0},
	},
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
