package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
)

// printer writes one "start-end row label" line per annotation.
type printer struct {
	w    *bufio.Writer
	rows map[string]bool
}

func newPrinter(w io.Writer, rows []string) *printer {
	p := &printer{w: bufio.NewWriter(w), rows: make(map[string]bool, len(rows))}
	for _, r := range rows {
		p.rows[r] = true
	}
	return p
}

// Print writes the selected annotations and flushes.
func (p *printer) Print(anns []cdc.Annotation) error {
	for _, a := range anns {
		row := a.Row.String()
		if !p.rows[row] {
			continue
		}
		fmt.Fprintf(p.w, "%d-%d %s %s\n", a.Start, a.End, row, a.Label)
	}
	return p.w.Flush()
}
