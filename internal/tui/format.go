package tui

import (
	"fmt"
	"time"

	"github.com/siphon-dl/siphon/internal/utils"
)

func formatStats(downloaded, total int64, speed float64, elapsed time.Duration) string {
	return fmt.Sprintf("%s / %s  %s  %s elapsed",
		utils.ConvertBytesToHumanReadable(downloaded),
		utils.ConvertBytesToHumanReadable(total),
		utils.ConvertSpeedToHumanReadable(speed),
		elapsed.Round(time.Second),
	)
}
