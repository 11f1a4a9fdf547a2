package constants

import "strings"

const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	TXT   = "TXT"
	DOC   = "DOC"
	SHEET = "SHEET"
)

// AllowedExtensions holds the default allowed file extensions for uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"heic": {},
	"heif": {},
	"webp": {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
	"txt":  {},
	"csv":  {},
	"docx": {},
	"xlsx": {},
}

// extMimeTypes maps normalized extensions to their canonical mime type.
var extMimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"heic": "image/heic",
	"heif": "image/heif",
	"webp": "image/webp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"bmp":  "image/bmp",
	"txt":  "text/plain",
	"csv":  "text/csv",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// MaxUploadBytes is the default hard cap for a single upload (50 MB).
const MaxUploadBytes = 50 << 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsHEICExt reports whether ext is one of the HEIC/HEIF family.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif", "heics", "heifs":
		return true
	}
	return false
}

// MapExtToFormat buckets an extension into PDF | IMAGE | TXT | DOC | SHEET, or "" if unknown.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "heic", "heif", "heics", "heifs", "webp", "tif", "tiff", "bmp":
		return IMAGE
	case "txt", "csv":
		return TXT
	case "docx":
		return DOC
	case "xlsx":
		return SHEET
	}
	return ""
}

// MimeTypeForExt returns the canonical mime type for ext, or "application/octet-stream".
func MimeTypeForExt(ext string) string {
	if mt, ok := extMimeTypes[NormalizeExt(ext)]; ok {
		return mt
	}
	return "application/octet-stream"
}

// IsImageMime reports whether a mime type denotes raster image content.
func IsImageMime(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// mimeExts is the preferred extension for a mime type; jpeg and tiff have two spellings.
var mimeExts = map[string]string{
	"application/pdf": "pdf",
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/heic":      "heic",
	"image/heif":      "heif",
	"image/webp":      "webp",
	"image/tiff":      "tiff",
	"image/bmp":       "bmp",
	"text/plain":      "txt",
	"text/csv":        "csv",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       "xlsx",
}

// ExtForMime returns the preferred extension for mimeType (parameters ignored), or "".
func ExtForMime(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mimeExts[mt]
}
