package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/holiman/uint256"
)

func newTableWriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func row(w io.Writer, key, value string) {
	_, _ = fmt.Fprintf(w, "%s\t%s\n", key, value)
}

func targetHex(t *uint256.Int) string {
	raw := t.Bytes32()
	return hex.EncodeToString(raw[:])
}
