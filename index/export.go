package index

import (
	"bufio"
	"fmt"
	"io"
	"time"
)

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo writes the normalized block list: a short comment header, then
// one canonical prefix per line, IPv4 before IPv6, in bit order.
func (s *Snapshot) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := bufio.NewWriter(cw)

	fmt.Fprintf(bw, "# snapshot %s\n", s.ID)
	fmt.Fprintf(bw, "# built %s\n", s.BuiltAt.Format(time.RFC3339))
	fmt.Fprintf(bw, "# entries %d\n", s.Entries)

	for _, f := range s.Families() {
		for e := range s.tries[f].All() {
			bw.WriteString(e.Key.String())
			if err := bw.WriteByte('\n'); err != nil {
				return cw.n, err
			}
		}
	}
	err := bw.Flush()
	return cw.n, err
}
