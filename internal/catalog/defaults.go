package catalog

// defaultMaterials returns the built-in material price table. External
// price-list files and the remote backend layer on top of these; a key
// removed from every external source reverts to this table.
func defaultMaterials() map[string]PriceEntry {
	entries := map[string]PriceEntry{
		// General materials
		"drywall":             {Price: 12.50, Unit: "sheet", Description: "4x8 drywall sheet"},
		"joint_compound":      {Price: 15.00, Unit: "bucket", Description: "Joint compound 5-gal"},
		"paint":               {Price: 35.00, Unit: "gallon", Description: "Interior paint"},
		"primer":              {Price: 25.00, Unit: "gallon", Description: "Paint primer"},
		"lumber_2x4":          {Price: 5.50, Unit: "piece", Description: "2x4x8 lumber"},
		"lumber_2x4_treated":  {Price: 6.50, Unit: "piece", Description: "2x4x8 treated lumber"},
		"tile":                {Price: 3.50, Unit: "sqft", Description: "Ceramic tile"},
		"grout":               {Price: 20.00, Unit: "bag", Description: "Tile grout"},
		"grout_sealer":        {Price: 18.00, Unit: "quart", Description: "Grout sealer"},
		"adhesive":            {Price: 25.00, Unit: "bucket", Description: "Tile adhesive / thinset"},
		"thin_set_mortar":     {Price: 18.00, Unit: "bag", Description: "Thin-set mortar 50lb"},
		"cement_backer_board": {Price: 14.00, Unit: "sheet", Description: "3'x5' cement backer board"},
		"concrete_3000psi":    {Price: 135.00, Unit: "cubic_yard", Description: "Ready-mix concrete 3000 PSI"},
		// Kitchen
		"cabinets":   {Price: 150.00, Unit: "linear_foot", Description: "Stock cabinets"},
		"countertop": {Price: 45.00, Unit: "sqft", Description: "Laminate countertop"},
		"backsplash": {Price: 8.00, Unit: "sqft", Description: "Backsplash tile"},
	}
	for k, e := range entries {
		e.Key = k
		e.Provenance = ProvenanceDefault
		entries[k] = e
	}
	return entries
}

// LaborRate is an hourly trade rate.
type LaborRate struct {
	Rate float64 `json:"rate"`
	Unit string  `json:"unit"`
}

// DefaultLaborRates returns hourly labor rates by trade.
func DefaultLaborRates() map[string]LaborRate {
	return map[string]LaborRate{
		"general":    {Rate: 45.00, Unit: "hour"},
		"drywall":    {Rate: 50.00, Unit: "hour"},
		"painting":   {Rate: 40.00, Unit: "hour"},
		"plumbing":   {Rate: 75.00, Unit: "hour"},
		"electrical": {Rate: 80.00, Unit: "hour"},
		"tile":       {Rate: 55.00, Unit: "hour"},
		"carpentry":  {Rate: 60.00, Unit: "hour"},
	}
}
