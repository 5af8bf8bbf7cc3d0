package system

import (
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

type Win32_OperatingSystem struct { //nolint:revive
	Caption        string
	Version        string
	OSArchitecture string
}

func queryOSInfo() (OSInfo, error) {
	var dst []Win32_OperatingSystem
	query := wmi.CreateQuery(&dst, "")
	if err := wmi.Query(query, &dst); err != nil {
		return OSInfo{}, fmt.Errorf("query Win32_OperatingSystem: %w", err)
	}
	if len(dst) == 0 {
		return OSInfo{}, fmt.Errorf("no Win32_OperatingSystem instance")
	}
	return OSInfo{
		Caption:        dst[0].Caption,
		Version:        dst[0].Version,
		OSArchitecture: dst[0].OSArchitecture,
	}, nil
}
