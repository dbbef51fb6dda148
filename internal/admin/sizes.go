package admin

import (
	"fmt"
	"strings"
)

// WarehouseSize pairs the label shown by SHOW WAREHOUSES with the code accepted by
// ALTER WAREHOUSE.
type WarehouseSize struct {
	Label string `json:"label"`
	Code  string `json:"code"`
}

var warehouseSizes = []WarehouseSize{
	{"X-Small", "XSMALL"},
	{"Small", "SMALL"},
	{"Medium", "MEDIUM"},
	{"Large", "LARGE"},
	{"X-Large", "XLARGE"},
	{"2X-Large", "XXLARGE"},
	{"3X-Large", "XXXLARGE"},
	{"4X-Large", "X4LARGE"},
}

var codeAliases = map[string]string{
	"2XLARGE": "XXLARGE",
	"3XLARGE": "XXXLARGE",
	"4XLARGE": "X4LARGE",
}

// WarehouseSizes returns the selectable sizes, smallest first.
func WarehouseSizes() []WarehouseSize {
	return append([]WarehouseSize(nil), warehouseSizes...)
}

// NormalizeSizeCode maps a label or code in any spelling ("X-Small", "xsmall", "2X-Large")
// to its ALTER WAREHOUSE code.
func NormalizeSizeCode(s string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "", " ", "", "_", "").Replace(key)
	if alias, ok := codeAliases[key]; ok {
		key = alias
	}
	for _, ws := range warehouseSizes {
		if ws.Code == key {
			return ws.Code, nil
		}
	}
	return "", fmt.Errorf("unknown warehouse size %q", s)
}

// SizeLabel returns the display label for a code or label.
func SizeLabel(s string) (string, error) {
	code, err := NormalizeSizeCode(s)
	if err != nil {
		return "", err
	}
	for _, ws := range warehouseSizes {
		if ws.Code == code {
			return ws.Label, nil
		}
	}
	return "", fmt.Errorf("unknown warehouse size %q", s)
}
