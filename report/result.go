package report

import "encoding/json"

// Result holds the rows of an executed report with values rendered as text.
type Result struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Records returns every row as a column/value map.
func (r Result) Records() []map[string]string {
	out := make([]map[string]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		record := make(map[string]string, len(r.Columns))
		for i, column := range r.Columns {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		out = append(out, record)
	}
	return out
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    string              `json:"name"`
		Columns []string            `json:"columns"`
		Rows    []map[string]string `json:"rows"`
	}{
		Name:    r.Name,
		Columns: r.Columns,
		Rows:    r.Records(),
	})
}
