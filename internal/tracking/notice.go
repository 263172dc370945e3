package tracking

import (
	"fmt"
)

// IsCgoEnabled reports whether the SQLite library is available in this build
func IsCgoEnabled() bool {
	return cgoEnabled
}

// HandleTrackingNotice displays a notice about library availability
func HandleTrackingNotice() {
	if !cgoEnabled {
		fmt.Println("Notice: local library disabled (CGO not available)")
		fmt.Println("Favorites, history and downloads will not be saved.")
		fmt.Println()
	}
}
