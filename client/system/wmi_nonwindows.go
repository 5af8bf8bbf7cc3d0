//go:build !windows

package system

import "errors"

func queryOSInfo() (OSInfo, error) {
	return OSInfo{}, errors.New("management instrumentation is only available on windows")
}
