package audio

import (
	"strings"
)

// parsePactlSources turns `pactl list short sources` output into devices.
// Monitor sources are system-loopback devices; everything else is treated
// as a microphone.
func parsePactlSources(out string, want SourceType) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := fields[1]

		source := SourceMicrophone
		if strings.Contains(name, ".monitor") {
			source = SourceSystem
		}
		if source != want {
			continue
		}

		devices = append(devices, Device{
			ID:         name,
			Name:       name,
			SourceType: source,
			SampleRate: 16000,
			Channels:   1,
		})
	}
	return devices
}
