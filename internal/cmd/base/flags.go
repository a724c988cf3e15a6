package base

import (
	"bytes"
	"flag"
	"fmt"
	"strings"
)

// FlagSet wraps a standard flag set with help rendering.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet returns a FlagSet that writes nothing on parse errors; commands
// report those through their UI.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	f.SetOutput(&bytes.Buffer{})
	return &FlagSet{FlagSet: f}
}

// Help renders the flags as an indented "Options" block.
func (f *FlagSet) Help() string {
	var b strings.Builder
	b.WriteString("\n\nOptions:\n")

	f.VisitAll(func(fl *flag.Flag) {
		fmt.Fprintf(&b, "\n  -%s", fl.Name)
		if fl.DefValue != "" && fl.DefValue != "false" {
			fmt.Fprintf(&b, "=%s", fl.DefValue)
		}
		fmt.Fprintf(&b, "\n      %s\n", fl.Usage)
	})

	return b.String()
}
