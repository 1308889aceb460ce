package theme

import (
	"fmt"
	"io"
	"os"
)

// Banner returns the CLI banner.
func Banner() string {
	const cyan = "\033[36m"
	const magenta = "\033[35m"
	const reset = "\033[0m"

	return "" +
		cyan + "  ▀▄▀ █ █ ▄▀█ █▀█ █ █ █▀▀ █▀ ▀█▀\n" + reset +
		cyan + "  █ █ █▀█ █▀█ █▀▄ ▀▄▀ ██▄ ▄█  █\n" + reset +
		magenta + "  daily post snapshots from X\n" + reset
}

// PrintBanner writes the banner to stdout.
func PrintBanner() {
	FprintBanner(os.Stdout)
}

func FprintBanner(w io.Writer) {
	fmt.Fprint(w, Banner())
}
