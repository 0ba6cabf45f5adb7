package collector

import "embed"

// Probe embeds the remote probe scripts shipped over SSH stdin, mirroring
// how internal/migrations embeds its SQL files.
//
//go:embed probe/*.py
var Probe embed.FS

func mustReadProbe(name string) string {
	b, err := Probe.ReadFile("probe/" + name)
	if err != nil {
		panic(err)
	}
	return string(b)
}

var collectScript = mustReadProbe("collect.py")
