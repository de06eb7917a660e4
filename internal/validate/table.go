package validate

import (
	"bufio"
	"os"
	"strings"
)

// Table is a staging file in memory: leading '#' comment lines, one
// header line and the data rows. The staging contract guarantees values
// never contain a literal tab or newline, so rows split cleanly on tabs.
// encoding/csv is deliberately not used here: its quoting rules disagree
// with the quote-free staging format.
type Table struct {
	Comments []string
	Header   []string
	Rows     [][]string
}

// Column returns the index of a named header column.
func (t *Table) Column(name string) (int, bool) {
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return 0, false
}

func readTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	table := &Table{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if table.Header == nil {
			if strings.HasPrefix(line, "#") {
				table.Comments = append(table.Comments, line)
				continue
			}
			table.Header = strings.Split(line, "\t")
			continue
		}
		if line == "" {
			continue
		}
		table.Rows = append(table.Rows, strings.Split(line, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return table, nil
}

func writeTable(path string, table *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, comment := range table.Comments {
		w.WriteString(comment)
		w.WriteByte('\n')
	}
	w.WriteString(strings.Join(table.Header, "\t"))
	w.WriteByte('\n')
	for _, row := range table.Rows {
		w.WriteString(strings.Join(row, "\t"))
		w.WriteByte('\n')
	}
	return w.Flush()
}
