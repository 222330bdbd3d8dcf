package domain

type Label string

const (
	LabelFinance   Label = "Finance"
	LabelHR        Label = "HR"
	LabelLegal     Label = "Legal"
	LabelContracts Label = "Contracts"
	LabelTech      Label = "Tech"
	LabelOther     Label = "Other"
)

// Labels is the closed label set in its tie-breaking order.
var Labels = []Label{LabelFinance, LabelHR, LabelLegal, LabelContracts, LabelTech, LabelOther}

// LabelIndex returns the enumeration position of l, or -1 for unknown labels.
func LabelIndex(l Label) int {
	for i, known := range Labels {
		if known == l {
			return i
		}
	}
	return -1
}

func LabelStrings() []string {
	out := make([]string, len(Labels))
	for i, l := range Labels {
		out[i] = string(l)
	}
	return out
}

type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// DefaultClassification is returned when no tier produced any signal.
func DefaultClassification() []LabelScore {
	return []LabelScore{{Label: string(LabelOther), Score: 1}}
}
