package jdbc

import "strings"

// disconnectMarkers are lowercase fragments of native exception text that
// indicate a lost connection across the supported drivers.
var disconnectMarkers = []string{
	"connection is closed",
	"closed connection",
	"connection reset",
	"connection refused",
	"broken pipe",
	"communications link failure",
	"connection has been closed",
	"socket read timed out",
	"i/o error occurred",
	"terminating connection",
}

// IsDisconnect reports whether err looks like a lost-connection failure.
// Best effort: JDBC drivers encode disconnects in free-form exception
// text, so this matches known message fragments and can miss
// driver-specific phrasings.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range disconnectMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
