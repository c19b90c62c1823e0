package layer

import (
	"fmt"
	"io"
	"strconv"
)

// WriteFloatsAsCode writes values as a Go slice literal assigned to name,
// eight values per line. It is a debugging aid for freezing trained
// parameters into test fixtures.
func WriteFloatsAsCode(w io.Writer, name string, values []float32) error {
	if _, err := fmt.Fprintf(w, "%s := []float32{", name); err != nil {
		return err
	}
	for i, v := range values {
		sep := " "
		if i%8 == 0 {
			sep = "\n\t"
		}
		if _, err := fmt.Fprintf(w, "%s%s,", sep, strconv.FormatFloat(float64(v), 'g', -1, 32)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n}\n")
	return err
}
