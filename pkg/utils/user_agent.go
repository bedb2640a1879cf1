package utils

import (
	"fmt"
	"strings"

	"github.com/avct/uasurfer"
)

const unknown = "Unknown"

type UserAgentInfo struct {
	Device  string
	OS      string
	Browser string
}

// ParseUserAgent never returns nil; unrecognized parts are reported as "Unknown".
func ParseUserAgent(uaString string) UserAgentInfo {
	if strings.TrimSpace(uaString) == "" {
		return UserAgentInfo{Device: unknown, OS: unknown, Browser: unknown}
	}
	ua := uasurfer.Parse(uaString)

	device := unknown
	switch ua.DeviceType {
	case uasurfer.DeviceComputer:
		device = "Computer"
	case uasurfer.DeviceTablet:
		device = "Tablet"
	case uasurfer.DevicePhone:
		device = "Phone"
	case uasurfer.DeviceConsole:
		device = "Console"
	case uasurfer.DeviceWearable:
		device = "Wearable"
	case uasurfer.DeviceTV:
		device = "TV"
	}

	os := unknown
	if ua.OS.Name != uasurfer.OSUnknown {
		os = fmt.Sprintf("%s %d.%d", ua.OS.Name.StringTrimPrefix(), ua.OS.Version.Major, ua.OS.Version.Minor)
	}

	browser := unknown
	if ua.Browser.Name != uasurfer.BrowserUnknown {
		browser = fmt.Sprintf("%s %d.%d", ua.Browser.Name.StringTrimPrefix(), ua.Browser.Version.Major, ua.Browser.Version.Minor)
	}

	return UserAgentInfo{
		Device:  device,
		OS:      os,
		Browser: browser,
	}
}
