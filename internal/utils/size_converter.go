package utils

import "github.com/dustin/go-humanize"

// ConvertBytesToHumanReadable converts a byte count into a human-readable
// string (e.g. "1.2 MB").
func ConvertBytesToHumanReadable(bytes int64) string {
	return humanize.Bytes(uint64(bytes))
}

// ConvertSpeedToHumanReadable converts a bytes/second rate into a
// human-readable throughput string (e.g. "1.2 MB/s").
func ConvertSpeedToHumanReadable(bytesPerSecond float64) string {
	if bytesPerSecond < 0 {
		bytesPerSecond = 0
	}
	return humanize.Bytes(uint64(bytesPerSecond)) + "/s"
}
