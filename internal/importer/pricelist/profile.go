package pricelist

// Profile describes the column layout of a price list export.
// Adding a new layout is just adding a new Profile to the profiles slice.
type Profile struct {
	Name        string
	CodeCol     string
	DateCol     string
	RetailCol   string
	ConsumerCol string
}

func (p Profile) requiredCols() []string {
	return []string{p.CodeCol, p.DateCol, p.RetailCol, p.ConsumerCol}
}

// profiles is the ordered list of layouts tried during auto-detection.
var profiles = []Profile{
	{
		Name:        "pt",
		CodeCol:     "Código",
		DateCol:     "Data",
		RetailCol:   "Retalho",
		ConsumerCol: "Consumidor",
	},
	{
		Name:        "en",
		CodeCol:     "Item Code",
		DateCol:     "Effective Date",
		RetailCol:   "Retail",
		ConsumerCol: "Consumer",
	},
}
