// Package mmcif reads and writes the subset of PDBx/mmCIF needed to annotate
// an entry: coordinates, entities, covalent connections, assembly operators,
// crystal symmetry and chemical component descriptors.
package mmcif

import (
	"bytes"
	"fmt"
	"strings"
)

type token struct {
	text   string
	quoted bool
	line   int
}

func (t token) keyword() bool {
	if t.quoted {
		return false
	}
	return t.text == "loop_" || strings.HasPrefix(t.text, "data_") ||
		strings.HasPrefix(t.text, "save_") || strings.HasPrefix(t.text, "_")
}

// tokenize splits CIF content into tokens, folding semicolon text fields
// and quoted strings into single value tokens.
func tokenize(data []byte) ([]token, error) {
	var toks []token
	lines := bytes.Split(data, []byte("\n"))
	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(string(lines[i]), "\r")
		lineNo := i + 1
		if strings.HasPrefix(line, ";") {
			var b strings.Builder
			b.WriteString(line[1:])
			closed := false
			for i+1 < len(lines) {
				i++
				next := strings.TrimRight(string(lines[i]), "\r")
				if strings.HasPrefix(next, ";") {
					closed = true
					break
				}
				b.WriteByte('\n')
				b.WriteString(next)
			}
			if !closed {
				return nil, fmt.Errorf("line %d: unterminated text field", lineNo)
			}
			toks = append(toks, token{text: strings.TrimSpace(b.String()), quoted: true, line: lineNo})
			continue
		}
		lineToks, err := splitLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		toks = append(toks, lineToks...)
	}
	return toks, nil
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

func splitLine(line string, lineNo int) ([]token, error) {
	var out []token
	i := 0
	for i < len(line) {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			break
		}
		c := line[i]
		switch {
		case c == '#':
			return out, nil
		case c == '\'' || c == '"':
			// A quote closes only when followed by whitespace or end of line.
			j := i + 1
			for {
				if j >= len(line) {
					return nil, fmt.Errorf("line %d: unterminated quoted string", lineNo)
				}
				if line[j] == c && (j+1 == len(line) || isSpace(line[j+1])) {
					break
				}
				j++
			}
			out = append(out, token{text: line[i+1 : j], quoted: true, line: lineNo})
			i = j + 1
		default:
			j := i
			for j < len(line) && !isSpace(line[j]) {
				j++
			}
			out = append(out, token{text: line[i:j], line: lineNo})
			i = j
		}
	}
	return out, nil
}

// Table is one category: either a loop or the single-valued items sharing a
// category prefix, which become a one-row table.
type Table struct {
	Name  string
	Tags  []string
	Rows  [][]string
	index map[string]int
}

func newTable(name string) *Table {
	return &Table{Name: name, index: make(map[string]int)}
}

func (t *Table) addTag(tag string) {
	t.index[tag] = len(t.Tags)
	t.Tags = append(t.Tags, tag)
}

// Has reports whether the table carries the item.
func (t *Table) Has(item string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[strings.ToLower(item)]
	return ok
}

// Value returns the item of row, or "" and false for missing and null ("?"/".") values.
func (t *Table) Value(row int, item string) (string, bool) {
	if t == nil || row < 0 || row >= len(t.Rows) {
		return "", false
	}
	col, ok := t.index[strings.ToLower(item)]
	if !ok {
		return "", false
	}
	v := t.Rows[row][col]
	if v == "?" || v == "." {
		return "", false
	}
	return v, true
}

// Str returns the item of row or "" when missing.
func (t *Table) Str(row int, item string) string {
	v, _ := t.Value(row, item)
	return v
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Block is one data block keyed by lowercase category name.
type Block struct {
	Name   string
	tables map[string]*Table
}

// Table returns the named category or nil.
func (b *Block) Table(category string) *Table {
	return b.tables[strings.ToLower(category)]
}

func splitTag(tag string) (string, string, error) {
	tag = strings.ToLower(strings.TrimPrefix(tag, "_"))
	cat, item, ok := strings.Cut(tag, ".")
	if !ok {
		return "", "", fmt.Errorf("tag %q has no category", tag)
	}
	return cat, item, nil
}

// parseBlock reads the first data block of data.
func parseBlock(data []byte) (*Block, error) {
	toks, err := tokenize(data)
	if err != nil {
		return nil, err
	}
	var blk *Block
	for i := 0; i < len(toks); {
		tok := toks[i]
		switch {
		case !tok.quoted && strings.HasPrefix(tok.text, "data_"):
			if blk != nil {
				return blk, nil
			}
			blk = &Block{Name: strings.TrimPrefix(tok.text, "data_"), tables: make(map[string]*Table)}
			i++
		case blk == nil:
			return nil, fmt.Errorf("line %d: content before data block", tok.line)
		case !tok.quoted && tok.text == "loop_":
			i++
			var table *Table
			for i < len(toks) && !toks[i].quoted && strings.HasPrefix(toks[i].text, "_") {
				cat, item, err := splitTag(toks[i].text)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", toks[i].line, err)
				}
				if table == nil {
					table = newTable(cat)
				} else if cat != table.Name {
					return nil, fmt.Errorf("line %d: loop mixes categories %s and %s", toks[i].line, table.Name, cat)
				}
				table.addTag(item)
				i++
			}
			if table == nil {
				return nil, fmt.Errorf("line %d: loop_ without tags", tok.line)
			}
			var vals []string
			for i < len(toks) && !toks[i].keyword() {
				vals = append(vals, toks[i].text)
				i++
			}
			if len(vals)%len(table.Tags) != 0 {
				return nil, fmt.Errorf("line %d: loop %s has %d values for %d tags", tok.line, table.Name, len(vals), len(table.Tags))
			}
			for r := 0; r < len(vals); r += len(table.Tags) {
				table.Rows = append(table.Rows, vals[r:r+len(table.Tags)])
			}
			blk.tables[table.Name] = table
		case !tok.quoted && strings.HasPrefix(tok.text, "_"):
			cat, item, err := splitTag(tok.text)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", tok.line, err)
			}
			if i+1 >= len(toks) || toks[i+1].keyword() {
				return nil, fmt.Errorf("line %d: missing value for %s", tok.line, tok.text)
			}
			table, ok := blk.tables[cat]
			if !ok {
				table = newTable(cat)
				table.Rows = [][]string{{}}
				blk.tables[cat] = table
			}
			if len(table.Rows) != 1 {
				return nil, fmt.Errorf("line %d: item %s redefines looped category", tok.line, tok.text)
			}
			table.addTag(item)
			table.Rows[0] = append(table.Rows[0], toks[i+1].text)
			i += 2
		default:
			// save frames and stray values are not used by the pipeline
			i++
		}
	}
	if blk == nil {
		return nil, fmt.Errorf("no data block")
	}
	return blk, nil
}
