// Package version хранит метки сборки. Значения подставляются через
// -ldflags "-X github.com/vladislavdragonenkov/storefront/internal/version.version=...".
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

// Version — номер релиза для health и логов.
func Version() string { return version }

// Commit берёт ревизию из ldflags, а без них из VCS-данных go build.
func Commit() string {
	if commit != "" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				return s.Value
			}
		}
	}
	return "unknown"
}

func String() string {
	built := date
	if built == "" {
		built = "unknown"
	}
	return fmt.Sprintf("storefront %s (commit %s, built %s)", version, Commit(), built)
}
