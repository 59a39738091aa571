// Package runconf parses the run-configuration files consumed by the
// SuperTransformer/SubTransformer training and latency-measurement tools:
// line-oriented `key: value` and `key: [v1, v2, ...]` pairs, with
// `#`-prefixed comment lines used to disable alternate settings.
package runconf

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

type ParseError struct {
	LineNumber int
	Msg        string
}

func (e *ParseError) Error() string {
	if e.LineNumber > 0 {
		return fmt.Sprintf("(line %d): %s", e.LineNumber, e.Msg)
	}
	return e.Msg
}

// Entry is one line of a configuration file. Comment and blank lines are
// kept with an empty Key so a document can be encoded back verbatim.
type Entry struct {
	Key   string
	Value Value
	Raw   string
	Line  int
}

func (e Entry) IsComment() bool { return e.Key == "" }

// Document is a parsed run configuration. Entries keep file order,
// including duplicates; for lookups the last occurrence of a key wins.
type Document struct {
	Entries []Entry

	index map[string]int
}

func Parse(r io.Reader) (*Document, error) {
	doc := &Document{index: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Text()
		trimmed := strings.TrimSpace(raw)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			doc.Entries = append(doc.Entries, Entry{Raw: raw, Line: line})
			continue
		}

		entry, err := parseLine(trimmed, line)
		if err != nil {
			return nil, err
		}
		entry.Raw = raw
		doc.index[entry.Key] = len(doc.Entries)
		doc.Entries = append(doc.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading configuration: %w", err)
	}

	return doc, nil
}

func parseLine(trimmed string, line int) (Entry, error) {
	idx := strings.Index(trimmed, ":")
	if idx < 0 {
		// bare key, a boolean flag
		if strings.ContainsAny(trimmed, " \t") {
			return Entry{}, &ParseError{LineNumber: line, Msg: fmt.Sprintf("expected 'key: value', got %q", trimmed)}
		}
		return Entry{Key: trimmed, Value: FlagValue(), Line: line}, nil
	}

	key := strings.TrimSpace(trimmed[:idx])
	if key == "" {
		return Entry{}, &ParseError{LineNumber: line, Msg: "missing option name before ':'"}
	}
	if strings.ContainsAny(key, " \t") {
		return Entry{}, &ParseError{LineNumber: line, Msg: fmt.Sprintf("invalid option name %q", key)}
	}

	val := strings.TrimSpace(trimmed[idx+1:])
	if val == "" {
		return Entry{}, &ParseError{LineNumber: line, Msg: fmt.Sprintf("missing value for option %q", key)}
	}

	if strings.HasPrefix(val, "[") {
		if !strings.HasSuffix(val, "]") {
			return Entry{}, &ParseError{LineNumber: line, Msg: fmt.Sprintf("unterminated list for option %q", key)}
		}
		inner := strings.TrimSpace(val[1 : len(val)-1])
		var items []string
		if inner != "" {
			for _, item := range strings.Split(inner, ",") {
				item = strings.TrimSpace(item)
				if item == "" {
					return Entry{}, &ParseError{LineNumber: line, Msg: fmt.Sprintf("empty element in list for option %q", key)}
				}
				items = append(items, item)
			}
		}
		return Entry{Key: key, Value: ListValue(items), Line: line}, nil
	}

	return Entry{Key: key, Value: ScalarValue(val), Line: line}, nil
}

func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s %w", path, err)
	}
	return doc, nil
}

func (d *Document) Lookup(key string) (Value, bool) {
	i, ok := d.index[key]
	if !ok {
		return Value{}, false
	}
	return d.Entries[i].Value, true
}

func (d *Document) Get(key string) Value {
	v, _ := d.Lookup(key)
	return v
}

func (d *Document) Has(key string) bool {
	_, ok := d.index[key]
	return ok
}

// Keys returns the effective option names in order of first appearance.
// Duplicates are collapsed to their last value.
func (d *Document) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, e := range d.Entries {
		if e.IsComment() || seen[e.Key] {
			continue
		}
		seen[e.Key] = true
		keys = append(keys, e.Key)
	}
	return keys
}

// Set replaces the last occurrence of key, or appends a new entry.
func (d *Document) Set(key string, v Value) {
	if d.index == nil {
		d.index = make(map[string]int)
	}
	if i, ok := d.index[key]; ok {
		d.Entries[i].Value = v
		d.Entries[i].Raw = ""
		return
	}
	d.index[key] = len(d.Entries)
	d.Entries = append(d.Entries, Entry{Key: key, Value: v})
}

func (d *Document) Encode(w io.Writer) error {
	for _, e := range d.Entries {
		var line string
		switch {
		case e.IsComment():
			line = e.Raw
		case e.Value.IsFlag():
			line = e.Key
		default:
			line = fmt.Sprintf("%s: %s", e.Key, e.Value.String())
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write configuration: %w", err)
		}
	}
	return nil
}

func (d *Document) String() string {
	var sb strings.Builder
	d.Encode(&sb)
	return sb.String()
}

// Fingerprint hashes the effective key/value pairs. Two documents that set
// the same options to the same values share a fingerprint, regardless of
// ordering, comments, or overridden duplicates.
func (d *Document) Fingerprint() string {
	keys := d.Keys()
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%s\n", k, d.Get(k).String())
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
