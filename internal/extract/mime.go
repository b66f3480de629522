package extract

import (
	"path/filepath"
	"strings"
)

// DefaultMIMEType is used for names without a recognised extension.
const DefaultMIMEType = "application/pdf"

var mimeByExt = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".gif":  "image/gif",
}

// MIMETypeFor maps an object name to the MIME type sent for recognition.
func MIMETypeFor(name string) string {
	if mt, ok := mimeByExt[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return DefaultMIMEType
}
