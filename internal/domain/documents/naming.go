package documents

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

var extRe = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)

// StoredExtension returns the extension of an uploaded file name, or "" when it
// is not a short alphanumeric suffix.
func StoredExtension(originalName string) string {
	ext := filepath.Ext(filepath.Base(originalName))
	if !extRe.MatchString(ext) {
		return ""
	}
	return ext
}

// StoredName is <unix-ms><ext>.
func StoredName(at time.Time, ext string) string {
	return fmt.Sprintf("%d%s", at.UnixMilli(), ext)
}
