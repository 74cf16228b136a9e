package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const bytesInMB = 1024 * 1024

var unsafeFileChars = regexp.MustCompile(`[^а-яА-Яa-zA-Z0-9]+`)

func SanitizeFileName(name string) string {
	return strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), "_")
}

// SizeMB formats a byte count the way captions show it: one decimal, no unit.
func SizeMB(size int64) string {
	return strconv.FormatFloat(float64(size)/bytesInMB, 'f', 1, 64)
}

func MBToBytes(mb int64) int64 {
	return mb * bytesInMB
}

func HumanBytes(size uint64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := uint64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
