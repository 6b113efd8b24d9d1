//go:build cgo
// +build cgo

package config

import "github.com/abdullah-azi/football-highlights/pkg/highlight"

// HighlightDNNBackendConfig builds a highlight.DNNBackendConfig from this
// config's [model] table.
func (c *Config) HighlightDNNBackendConfig() highlight.DNNBackendConfig {
	return highlight.DNNBackendConfig{
		ModelPath:   c.Model.Path,
		ConfigPath:  c.Model.ConfigPath,
		InputW:      c.Model.InputW,
		InputH:      c.Model.InputH,
		ScaleFactor: c.Model.ScaleFactor,
		MeanR:       c.Model.MeanR,
		MeanG:       c.Model.MeanG,
		MeanB:       c.Model.MeanB,
		ClassNames:  c.Model.ClassNames,
		BallClass:   c.Detector.BallClass,
		MinConf:     c.Model.MinConf,
	}
}
