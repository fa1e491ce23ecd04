package signing

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/magiconair/properties"
)

// RedactSource masks password values in raw properties file content while
// keeping comments, ordering and the other keys as written. Keys are matched
// after unescaping, and continuation lines of a masked value are masked too.
func RedactSource(data []byte) ([]byte, error) {
	var out bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(nil, len(data)+1)
	scanner.Split(scanPropertyLines)

	var logical []string
	for scanner.Scan() {
		line := scanner.Text()
		content, _ := splitTerminator(line)
		if len(logical) == 0 && isBlankOrComment(content) {
			out.WriteString(line)
			continue
		}
		logical = append(logical, line)
		if endsWithContinuation(content) {
			continue
		}
		writeLogicalLine(&out, logical)
		logical = logical[:0]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan signing properties: %w", err)
	}
	if len(logical) > 0 {
		writeLogicalLine(&out, logical)
	}
	return out.Bytes(), nil
}

// scanPropertyLines splits on \n, \r\n and a lone \r, keeping the terminator
func scanPropertyLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i+1], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i+2], nil
			}
			return i + 1, data[:i+1], nil
		}
		if atEOF {
			return i + 1, data[:i+1], nil
		}
		// a trailing \r may be the first half of \r\n
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func splitTerminator(line string) (content, terminator string) {
	for _, t := range []string{"\r\n", "\n", "\r"} {
		if strings.HasSuffix(line, t) {
			return line[:len(line)-len(t)], t
		}
	}
	return line, ""
}

func isBlankOrComment(content string) bool {
	trimmed := strings.TrimLeft(content, " \t\f")
	return trimmed == "" || trimmed[0] == '#' || trimmed[0] == '!'
}

func endsWithContinuation(content string) bool {
	n := 0
	for i := len(content) - 1; i >= 0 && content[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// splitKeyValue returns the offsets of the raw key and of the value in a
// logical line. The key ends at the first unescaped whitespace, '=' or ':'.
func splitKeyValue(s string) (keyStart, keyEnd, valueStart int) {
	i := skipWhitespace(s, 0)
	keyStart = i
	for i < len(s) {
		c := s[i]
		if c == '\\' {
			i += 2
			continue
		}
		if c == ' ' || c == '\t' || c == '\f' || c == '=' || c == ':' {
			break
		}
		i++
	}
	if i > len(s) {
		i = len(s)
	}
	keyEnd = i
	i = skipWhitespace(s, i)
	if i < len(s) && (s[i] == '=' || s[i] == ':') {
		i = skipWhitespace(s, i+1)
	}
	return keyStart, keyEnd, i
}

func skipWhitespace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\f') {
		i++
	}
	return i
}

// unescapeKey decodes a raw key with the same loader Parse uses
func unescapeKey(raw string) string {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadBytes([]byte(raw + "=\n"))
	if err != nil || p.Len() != 1 {
		return raw
	}
	return p.Keys()[0]
}

// joinLogicalLine folds continuation lines the way the properties format
// does: the trailing backslash is dropped along with the next line's
// leading whitespace.
func joinLogicalLine(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		content, _ := splitTerminator(line)
		if i > 0 {
			content = strings.TrimLeft(content, " \t\f")
		}
		if i < len(lines)-1 {
			content = content[:len(content)-1]
		}
		b.WriteString(content)
	}
	return b.String()
}

func writeLogicalLine(out *bytes.Buffer, lines []string) {
	joined := joinLogicalLine(lines)
	ks, ke, vs := splitKeyValue(joined)
	key := unescapeKey(joined[ks:ke])
	if !IsSecret(key) || joined[vs:] == "" {
		for _, line := range lines {
			out.WriteString(line)
		}
		return
	}

	first, terminator := splitTerminator(lines[0])
	_, firstKeyEnd, firstValueStart := splitKeyValue(first)
	if firstKeyEnd < len(first) || len(lines) == 1 {
		out.WriteString(first[:firstValueStart] + redactedValue + terminator)
		for _, line := range lines[1:] {
			_, t := splitTerminator(line)
			out.WriteString("    " + redactedValue + t)
		}
		return
	}

	// the key itself is split across lines
	_, terminator = splitTerminator(lines[len(lines)-1])
	out.WriteString(first[:ks] + key + "=" + redactedValue + terminator)
}
