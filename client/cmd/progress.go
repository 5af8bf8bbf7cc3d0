package cmd

import (
	"fmt"
	"io"

	"github.com/netbirdio/minion-installer/client/internal/downloader"
)

// newProgressReporter prints the download progress in steps of ten percent, or every
// ten megabytes when the size is unknown
func newProgressReporter(out io.Writer) downloader.ProgressFunc {
	const unknownStep = 10 * 1024 * 1024
	var reported int64 = -1

	return func(downloaded, total int64) {
		if total <= 0 {
			step := downloaded / unknownStep
			if step > reported {
				reported = step
				fmt.Fprintf(out, "Downloaded %d MB\n", downloaded/(1024*1024))
			}
			return
		}

		step := downloaded * progressReportFactor / total
		if step > reported {
			reported = step
			fmt.Fprintf(out, "Downloaded %d%%\n", step*100/progressReportFactor)
		}
	}
}
