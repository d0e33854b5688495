package catalog

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"
)

// Field aliases accepted in record-style price lists. Matching is
// case-insensitive; the alias order is the lookup priority.
var (
	priceAliases = []string{"price", "Final_Price_USD", "Base_Cost_USD"}
	nameAliases  = []string{"name", "material", "title", "Material"}
	unitAliases  = []string{"unit", "Unit_Type"}
	descAliases  = []string{"description", "Description", "Category"}
)

// loadFile parses one price-list file into tbl and returns the number of
// entries loaded. Individual bad records are skipped; only file-level
// failures (unreadable, unparseable container) error.
func loadFile(path string, tbl *table) (int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadDelimited(path, ',', tbl)
	case ".tsv":
		return loadDelimited(path, '\t', tbl)
	case ".xlsx":
		return loadXLSX(path, tbl)
	case ".yaml", ".yml":
		return loadYAML(path, tbl)
	default:
		// .json and anything unrecognized: attempt JSON.
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, eris.Wrapf(err, "catalog: read %s", path)
		}
		return loadJSON(data, tbl)
	}
}

// loadJSON handles both supported JSON shapes: an object keyed by
// material key, or an array of records with aliased fields.
func loadJSON(data []byte, tbl *table) (int, error) {
	var asObject map[string]map[string]any
	if err := json.Unmarshal(data, &asObject); err == nil {
		count := 0
		for key, rec := range asObject {
			price, ok := toFloat(fieldCI(rec, priceAliases...))
			if !ok {
				continue
			}
			unit, _ := fieldCI(rec, unitAliases...).(string)
			desc, _ := fieldCI(rec, descAliases...).(string)
			tbl.apply(key, price, unit, desc)
			count++
		}
		return count, nil
	}

	var asArray []map[string]any
	if err := json.Unmarshal(data, &asArray); err != nil {
		return 0, eris.Wrap(err, "catalog: parse JSON price list")
	}

	count := 0
	for _, rec := range asArray {
		price, ok := toFloat(fieldCI(rec, priceAliases...))
		if !ok {
			continue
		}
		key, _ := fieldCI(rec, "key").(string)
		key = strings.TrimSpace(key)
		name, _ := fieldCI(rec, nameAliases...).(string)
		if key == "" && name != "" {
			key = NormalizeKey(name)
		}
		if key == "" {
			continue
		}
		unit, _ := fieldCI(rec, unitAliases...).(string)
		desc, _ := fieldCI(rec, descAliases...).(string)
		if desc == "" {
			desc = name
		}
		tbl.apply(key, price, unit, desc)
		count++
	}
	return count, nil
}

func loadDelimited(path string, comma rune, tbl *table) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "catalog: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return 0, eris.Wrapf(err, "catalog: parse %s", path)
	}
	if len(rows) < 2 {
		return 0, nil
	}

	cols := headerIndex(rows[0])
	count := 0
	for _, row := range rows[1:] {
		key := strings.TrimSpace(cell(row, cols, "key"))
		if key == "" {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(cell(row, cols, "price")), 64)
		if err != nil {
			continue
		}
		tbl.apply(key, price, strings.TrimSpace(cell(row, cols, "unit")), strings.TrimSpace(cell(row, cols, "description")))
		count++
	}
	return count, nil
}

func loadXLSX(path string, tbl *table) (int, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "catalog: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return 0, nil
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) < 2 {
		return 0, nil
	}

	header := make([]string, 0, len(sheet.Rows[0].Cells))
	for _, c := range sheet.Rows[0].Cells {
		header = append(header, c.String())
	}
	cols := headerIndex(header)

	count := 0
	for _, row := range sheet.Rows[1:] {
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cells = append(cells, c.String())
		}
		key := strings.TrimSpace(cell(cells, cols, "key"))
		if key == "" {
			if name := strings.TrimSpace(cell(cells, cols, "name")); name != "" {
				key = NormalizeKey(name)
			}
		}
		if key == "" {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(cell(cells, cols, "price")), 64)
		if err != nil {
			continue
		}
		tbl.apply(key, price, strings.TrimSpace(cell(cells, cols, "unit")), strings.TrimSpace(cell(cells, cols, "description")))
		count++
	}
	return count, nil
}

func loadYAML(path string, tbl *table) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "catalog: read %s", path)
	}

	var records map[string]struct {
		Price       *float64 `yaml:"price"`
		Unit        string   `yaml:"unit"`
		Description string   `yaml:"description"`
	}
	if err := yaml.Unmarshal(data, &records); err != nil {
		return 0, eris.Wrapf(err, "catalog: parse yaml %s", path)
	}

	count := 0
	for key, rec := range records {
		if rec.Price == nil {
			continue
		}
		tbl.apply(key, *rec.Price, rec.Unit, rec.Description)
		count++
	}
	return count, nil
}

// fieldCI returns the first matching field value, trying exact names
// first and a lowercase fallback second.
func fieldCI(rec map[string]any, names ...string) any {
	for _, n := range names {
		if v, ok := rec[n]; ok {
			return v
		}
	}
	lower := make(map[string]any, len(rec))
	for k, v := range rec {
		lower[strings.ToLower(k)] = v
	}
	for _, n := range names {
		if v, ok := lower[strings.ToLower(n)]; ok && v != nil {
			return v
		}
	}
	return nil
}

// toFloat coerces JSON numbers and numeric strings.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
