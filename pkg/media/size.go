package media

import (
	"fmt"
	"os"
)

const bytesPerGiB = 1 << 30

// FileSizeGiB stats path and returns its size in gibibytes. This feeds the
// job manager's immediate-vs-background classification.
func FileSizeGiB(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("media file not found: %s", path)
		}
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory, not a media file", path)
	}
	return float64(info.Size()) / bytesPerGiB, nil
}

// TotalSizeGiB sums FileSizeGiB over paths. Multi-input operations (concat,
// reel) classify on the combined size.
func TotalSizeGiB(paths []string) (float64, error) {
	var total float64
	for _, p := range paths {
		g, err := FileSizeGiB(p)
		if err != nil {
			return 0, err
		}
		total += g
	}
	return total, nil
}
