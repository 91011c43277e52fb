package cli

import (
	"fmt"
	"io"

	"github.com/ZacharyZcR/readpe/internal/flags"
)

// PrintRegistry lists every named flag value, grouped by field key.
func PrintRegistry(w io.Writer, reg *flags.Registry) error {
	for i, key := range reg.Fields() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s:\n", key); err != nil {
			return err
		}
		for _, e := range reg.Entries(key) {
			if _, err := fmt.Fprintf(w, "%s0x%08x  %s\n", indent, e.Value, e.Name); err != nil {
				return err
			}
		}
	}
	return nil
}
