package version

import (
	"fmt"

	"github.com/alvarorichard/hianime/internal/tracking"
)

const (
	Version = "0.3.0"
)

// String returns the version line, noting whether the local library is built in
func String() string {
	if tracking.IsCgoEnabled() {
		return fmt.Sprintf("hianime v%s (with SQLite library)", Version)
	}
	return fmt.Sprintf("hianime v%s (without SQLite library)", Version)
}

func ShowVersion() {
	fmt.Println(String())
}
