package model

// AnalysisExport is the downloadable record of one analysis run, also
// printed by the headless analyze command.
type AnalysisExport struct {
	RunInfo
	Settings  EvaluationSettings `json:"settings"`
	Documents []DocumentSummary  `json:"documents"`
	Warnings  []string           `json:"warnings,omitempty"`
	Result    Value              `json:"result"`
}

// DocumentSummary describes a document without its content.
type DocumentSummary struct {
	Kind      DocumentKind `json:"kind"`
	Filename  string       `json:"filename"`
	MediaType string       `json:"media_type"`
	Size      int          `json:"size"`
}

// Summarize lists attached documents in slot order.
func (ds Documents) Summarize() []DocumentSummary {
	var out []DocumentSummary
	for _, k := range DocumentKinds {
		if !ds.Has(k) {
			continue
		}
		d := ds[k]
		out = append(out, DocumentSummary{
			Kind:      d.Kind,
			Filename:  d.Filename,
			MediaType: d.MediaType,
			Size:      d.Size(),
		})
	}
	return out
}
