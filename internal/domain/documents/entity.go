package documents

import (
	"path/filepath"
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is one spreadsheet row keyed by column header, in column order.
type Record struct {
	*orderedmap.OrderedMap[string, any]
}

func NewRecord() Record {
	return Record{OrderedMap: orderedmap.New[string, any]()}
}

// UploadedFile describes a blob accepted by the upload endpoint.
type UploadedFile struct {
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// spreadsheetExts are the workbook formats the parser can open.
var spreadsheetExts = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
}

// IsSpreadsheet reports whether a stored name carries a workbook extension.
func IsSpreadsheet(name string) bool {
	return spreadsheetExts[strings.ToLower(filepath.Ext(name))]
}
