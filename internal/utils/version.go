package utils

import "runtime/debug"

// Set with -ldflags "-X shollu-partner/internal/utils.BuildVersion=..."
var BuildVersion = ""

func GetVersion() string {
	if BuildVersion != "" {
		return BuildVersion
	}

	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "dev"
	}

	// Check if dirty
	for _, setting := range info.Settings {
		if setting.Key == "vcs.modified" && setting.Value == "true" {
			return info.Main.Version + "-dirty"
		}
	}

	return info.Main.Version
}
