package diagfmt

import (
	"bufio"
	"fmt"
	"io"

	"tidyls/internal/diag"
)

// Short writes one line per diagnostic in the compiler style
// path:line:col: severity: message [check].
func Short(w io.Writer, bag *diag.Bag, opts ShortOpts) error {
	bw := bufio.NewWriter(w)
	for _, d := range bag.Items() {
		fmt.Fprintf(bw, "%s:%d:%d: %s: %s",
			FormatPath(d.Path, opts.PathMode, opts.BaseDir),
			d.Range.Start.Line+1,
			d.Range.Start.Character+1,
			d.Severity,
			d.Message,
		)
		if d.Name != "" {
			fmt.Fprintf(bw, " [%s]", d.Name)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
