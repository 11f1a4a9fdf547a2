// Package security produces validation flags for uploaded files.
package security

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/entity"
)

// Flag codes.
const (
	FlagEmptyFile           = "empty_file"
	FlagOversized           = "oversized_file"
	FlagDisallowedExtension = "disallowed_extension"
	FlagMissingExtension    = "missing_extension"
	FlagPDFScript           = "pdf_embedded_script"
	FlagPDFAutoAction       = "pdf_auto_action"
	FlagMimeMismatch        = "mime_mismatch"
	FlagExecutable          = "executable_content"
)

type Config struct {
	MaxBytes          int64
	AllowedExtensions map[string]struct{}
}

type Checker struct {
	cfg    Config
	logger *slog.Logger
}

func NewChecker(cfg Config, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = constants.MaxUploadBytes
	}
	if cfg.AllowedExtensions == nil {
		cfg.AllowedExtensions = constants.AllowedExtensions
	}
	return &Checker{cfg: cfg, logger: logger}
}

var executableMimes = []string{
	"application/vnd.microsoft.portable-executable",
	"application/x-msdownload",
	"application/x-elf",
	"application/x-executable",
	"application/x-sharedlib",
	"application/x-mach-binary",
	"application/java-archive",
	"text/x-shellscript",
}

// Check inspects the declared file metadata and the raw bytes.
// It returns nil when nothing is wrong.
func (c *Checker) Check(info entity.FileInfo, content []byte) []entity.SecurityFlag {
	if info.Size <= 0 {
		info.Size = int64(len(content))
	}
	var flags []entity.SecurityFlag
	if info.Size == 0 || len(content) == 0 {
		flags = append(flags, entity.SecurityFlag{Code: FlagEmptyFile, Severity: constants.SeverityError, Message: "File is empty"})
	}
	flags = append(flags, c.metadataFlags(info)...)
	if len(content) > 0 {
		flags = append(flags, c.contentFlags(info, content)...)
	}
	c.log(info, flags)
	return flags
}

// CheckMetadata runs only the checks that need no bytes: extension and, when
// info.Size is known, the size limit. It serves callers that analyze a document
// by checksum after the bytes were validated elsewhere.
func (c *Checker) CheckMetadata(info entity.FileInfo) []entity.SecurityFlag {
	flags := c.metadataFlags(info)
	c.log(info, flags)
	return flags
}

func (c *Checker) metadataFlags(info entity.FileInfo) []entity.SecurityFlag {
	var flags []entity.SecurityFlag
	add := func(code string, sev constants.Severity, format string, args ...any) {
		flags = append(flags, entity.SecurityFlag{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}
	if info.Size > c.cfg.MaxBytes {
		add(FlagOversized, constants.SeverityError, "File is %s; the limit is %s",
			humanize.Bytes(uint64(info.Size)), humanize.Bytes(uint64(c.cfg.MaxBytes)))
	}

	ext := constants.NormalizeExt(filepath.Ext(info.Filename))
	switch {
	case ext == "":
		add(FlagMissingExtension, constants.SeverityWarning, "File name %q has no extension", info.Filename)
	case !c.allowed(ext):
		add(FlagDisallowedExtension, constants.SeverityError, "Files of type .%s are not allowed", ext)
	}
	return flags
}

func (c *Checker) contentFlags(info entity.FileInfo, content []byte) []entity.SecurityFlag {
	var flags []entity.SecurityFlag
	add := func(code string, sev constants.Severity, format string, args ...any) {
		flags = append(flags, entity.SecurityFlag{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}
	detected := mimetype.Detect(content)
	if isExecutable(detected, content) {
		add(FlagExecutable, constants.SeverityError, "File contains executable content (%s)", detected.String())
	}
	if detected.Is("application/pdf") {
		flags = append(flags, pdfFlags(content)...)
	}
	if declared := normalizeMime(info.MimeType); declared != "" && !mimeAgrees(detected, declared) {
		add(FlagMimeMismatch, constants.SeverityWarning, "Declared type %s does not match detected type %s", declared, detected.String())
	}
	return flags
}

// DetectMime sniffs content, returning the bare mime type without parameters.
func DetectMime(content []byte) string {
	return normalizeMime(mimetype.Detect(content).String())
}

func (c *Checker) allowed(ext string) bool {
	_, ok := c.cfg.AllowedExtensions[ext]
	return ok
}

func (c *Checker) log(info entity.FileInfo, flags []entity.SecurityFlag) {
	if len(flags) == 0 {
		return
	}
	codes := make([]string, len(flags))
	for i, f := range flags {
		codes[i] = f.Code
	}
	c.logger.Info("security flags raised", "filename", info.Filename, "flags", codes)
}

var (
	rePDFName    = regexp.MustCompile(`/[A-Za-z0-9#]+`)
	rePDFHexChar = regexp.MustCompile(`#[0-9A-Fa-f]{2}`)
)

// pdfFlags scans PDF names, decoding #xx escapes first so obfuscated keys are caught.
func pdfFlags(content []byte) []entity.SecurityFlag {
	names := map[string]bool{}
	for _, raw := range rePDFName.FindAll(content, -1) {
		name := rePDFHexChar.ReplaceAllFunc(raw, func(h []byte) []byte {
			b, err := hex.DecodeString(string(h[1:]))
			if err != nil {
				return h
			}
			return b
		})
		names[string(name)] = true
	}

	var flags []entity.SecurityFlag
	script := names["/JavaScript"] || names["/JS"]
	if script {
		flags = append(flags, entity.SecurityFlag{Code: FlagPDFScript, Severity: constants.SeverityError, Message: "PDF contains embedded JavaScript"})
	}
	if names["/Launch"] || (names["/OpenAction"] && script) {
		flags = append(flags, entity.SecurityFlag{Code: FlagPDFAutoAction, Severity: constants.SeverityError, Message: "PDF runs an action when opened"})
	}
	return flags
}

var nativeMagic = [][]byte{
	[]byte("MZ"),
	[]byte("\x7fELF"),
	{0xfe, 0xed, 0xfa, 0xce},
	{0xfe, 0xed, 0xfa, 0xcf},
	{0xce, 0xfa, 0xed, 0xfe},
	{0xcf, 0xfa, 0xed, 0xfe},
}

func isExecutable(detected *mimetype.MIME, content []byte) bool {
	for _, m := range executableMimes {
		if detected.Is(m) {
			return true
		}
	}
	for _, magic := range nativeMagic {
		if bytes.HasPrefix(content, magic) {
			return true
		}
	}
	return false
}

func mimeAgrees(detected *mimetype.MIME, declared string) bool {
	if declared == "application/octet-stream" {
		return true
	}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(declared) {
			return true
		}
	}
	// Text sniffing cannot tell csv from plain text reliably.
	det := normalizeMime(detected.String())
	if strings.HasPrefix(det, "text/") && strings.HasPrefix(declared, "text/") {
		return true
	}
	// HEIC brands are not always recognised.
	if det == "application/octet-stream" && (declared == "image/heic" || declared == "image/heif") {
		return true
	}
	return false
}

func normalizeMime(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}
