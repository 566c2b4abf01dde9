package history

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// WriteYAML renders a record as YAML. Field names follow the JSON tags.
func WriteYAML(w io.Writer, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return fmt.Errorf("convert record: %w", err)
	}
	clearStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// clearStyle drops the quoting and flow style inherited from JSON.
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

// WriteTable prints one line per record.
func WriteTable(w io.Writer, records []Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tVUS\tITERATIONS\tCHECKS\tP95\tTHRESHOLDS\tTARGET")
	for _, rec := range records {
		verdict := "pass"
		if !rec.ThresholdsPassed {
			verdict = "FAIL"
		}
		if len(rec.Summary.Thresholds) == 0 {
			verdict = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.2f%%\t%.2fms\t%s\t%s\n",
			rec.ID,
			rec.StartedAt.Local().Format(time.DateTime),
			rec.Config.VUs,
			rec.Summary.Iterations,
			rec.Summary.Checks.Rate()*100,
			rec.Summary.Requests.P95LatencyMs,
			verdict,
			rec.Config.Target,
		)
	}
	return tw.Flush()
}
