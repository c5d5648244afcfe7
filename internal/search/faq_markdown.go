package search

import (
	"bufio"
	"io"
	"strings"
)

// FAQRow is one question/answer pair read from a markdown table.
type FAQRow struct {
	Question string
	Answer   string
	Keywords []string
}

// ParseFAQMarkdown reads markdown tables shaped as
//
//	| Question | Answer | Keywords |
//	|---|---|---|
//	| ¿Horario de la alberca? | 9 a 21 h | alberca, piscina |
//
// and returns one FAQRow per body row. Header rows (first cell "question"
// or "pregunta"), separator rows and rows with fewer than two cells are
// skipped; non-table lines are ignored.
func ParseFAQMarkdown(r io.Reader) ([]FAQRow, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out []FAQRow
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
			continue
		}
		cols := strings.Split(strings.Trim(line, "|"), "|")

		allSep := true
		cells := make([]string, 0, len(cols))
		for _, c := range cols {
			cell := strings.TrimSpace(c)
			cells = append(cells, cell)
			tmp := strings.ReplaceAll(cell, ":", "")
			tmp = strings.ReplaceAll(tmp, "-", "")
			if strings.TrimSpace(tmp) != "" {
				allSep = false
			}
		}
		if allSep || len(cells) < 2 || cells[0] == "" || cells[1] == "" {
			continue
		}
		if h := Fold(cells[0]); h == "question" || h == "pregunta" {
			continue
		}

		row := FAQRow{Question: cells[0], Answer: cells[1]}
		if len(cells) > 2 {
			for _, k := range strings.Split(cells[2], ",") {
				if k = strings.TrimSpace(k); k != "" {
					row.Keywords = append(row.Keywords, k)
				}
			}
		}
		out = append(out, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
