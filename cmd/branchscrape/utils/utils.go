package utils

import (
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// FormatCoordinate renders a coordinate with the precision maps links usually carry.
func FormatCoordinate(value float64, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(value, 'f', 6, 64)
}
