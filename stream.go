package csvmap

import (
	"io"
	"iter"
)

// WriteIter collects records from seq and serializes them to w. The output
// is trimmed as a whole, so nothing is written until seq is exhausted.
func WriteIter[T any](w io.Writer, seq iter.Seq[T]) error {
	c, err := NewCodec[T]()
	if err != nil {
		return err
	}
	return c.WriteIter(w, seq)
}

// WriteChan serializes records received from ch until it is closed.
// It is a thin wrapper around [WriteIter].
func WriteChan[T any](w io.Writer, ch <-chan T) error {
	return WriteIter(w, chanToIter(ch))
}

// WriteIter collects records from seq and serializes them to w.
func (c *Codec[T]) WriteIter(w io.Writer, seq iter.Seq[T]) error {
	var records []T
	seq(func(rec T) bool {
		records = append(records, rec)
		return true
	})
	return c.Write(w, records...)
}

func chanToIter[T any](ch <-chan T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for item := range ch {
			if !yield(item) {
				return
			}
		}
	}
}
