package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// FormatSpeed renders a byte rate, e.g. "1.2 MB/s".
func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	return humanize.Bytes(uint64(float64(bytes)/elapsed)) + "/s"
}

// ProgressBar renders a bar sized to the terminal.
func ProgressBar(current, total int64) string {
	width := getTerminalWidth() - 40
	if width > 50 {
		width = 50
	}
	if width <= 0 {
		width = 30
	}
	if total <= 0 {
		total = 1
	}
	current = max(0, min(current, total))
	percent := float64(current) / float64(total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	bar += strings.Repeat(" ", width-filled)
	bar += StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %3d%% %s %s / %s", bar, int(percent*100), StyleSymbols["bullet"],
		humanize.Bytes(uint64(current)), humanize.Bytes(uint64(total))))
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
