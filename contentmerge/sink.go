package contentmerge

import (
	"io"
	"strings"
)

// splitLines splits text into lines, each line retaining its trailing '\n'
// (and the final line having none if the text did not end with one). Adapted
// from the teacher's modules/diferenco/sink.go raw-split mode, which is the
// one the core's byte-exact content merge needs (no newline normalization).
func splitLines(text string) []string {
	lines := make([]string, 0, 64)
	for pos := 0; pos < len(text); {
		part := text[pos:]
		nl := strings.IndexByte(part, '\n')
		if nl == -1 {
			lines = append(lines, part)
			break
		}
		lines = append(lines, part[:nl+1])
		pos += nl + 1
	}
	return lines
}

func writeLines(w io.Writer, lines ...string) {
	for _, l := range lines {
		_, _ = io.WriteString(w, l)
	}
}
