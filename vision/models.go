package vision

// Model describes a vision-capable model the user can select.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultModel is the baseline model used when the user has not picked one.
const DefaultModel = "gpt-4o-mini"

// Models lists the selectable vision models, default first.
var Models = []Model{
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Description: "Balanced performance and cost (Default)"},
	{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini", Description: "Latest mini model with enhanced capabilities"},
	{ID: "o1-mini", Name: "o1-mini", Description: "Advanced reasoning capabilities"},
}

// ModelIDs returns the catalog ids, for selection validation.
func ModelIDs() []string {
	ids := make([]string, len(Models))
	for i, m := range Models {
		ids[i] = m.ID
	}
	return ids
}
