package trace

import (
	"bufio"
	"errors"
	"io"

	"github.com/abelbrown/sidebar/internal/logging"
	"github.com/abelbrown/sidebar/internal/model"
)

// maxLineSize bounds a single trace line. Notification bodies can be long.
// Longer lines are skipped, not treated as a stream failure.
const maxLineSize = 1024 * 1024

// Scan feeds every line of r to p and calls emit for each completed
// notification. It returns when r is exhausted; io.EOF is not an error.
func Scan(r io.Reader, p *Parser, emit func(model.Notification)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var (
		line     []byte
		oversize bool
	)
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if !oversize {
			if len(line)+len(chunk) > maxLineSize {
				oversize = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if isPrefix {
			continue
		}

		if oversize {
			logging.Debug("Skipping oversize trace line", "limit", maxLineSize)
		} else if n, ok := p.Feed(string(line)); ok {
			emit(n)
		}
		line = line[:0]
		oversize = false
	}
}
