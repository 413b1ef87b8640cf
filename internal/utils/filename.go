package utils

import (
	"bytes"
	"encoding/binary"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
)

// DetermineFilename resolves the filename a download should be saved under.
// It tries, in order: an explicit Content-Disposition name, a
// filename/file query parameter, the URL path, and — only when none of
// those yield a real name or extension — a ZIP local-file-header name or a
// magic-byte sniff of header, the resource's leading bytes. dispositionName
// and header may be empty/nil; every step degrades gracefully.
func DetermineFilename(rawurl, dispositionName string, header []byte) string {
	candidate := dispositionName

	parsed, _ := url.Parse(rawurl)

	if candidate == "" && parsed != nil {
		q := parsed.Query()
		if name := q.Get("filename"); name != "" {
			candidate = name
		} else if name := q.Get("file"); name != "" {
			candidate = name
		}
	}

	if candidate == "" && parsed != nil {
		candidate = filepath.Base(parsed.Path)
	}

	filename := sanitizeFilename(candidate)

	// A bare "." means nothing nameable turned up in the URL; a ZIP's own
	// local file header (if this is the start of one) names the archived
	// entry, which is usually more useful than a generated default.
	if candidate == "." && len(header) >= 30 && bytes.HasPrefix(header, []byte{0x50, 0x4B, 0x03, 0x04}) {
		nameLen := int(binary.LittleEndian.Uint16(header[26:28]))
		start := 30
		end := start + nameLen
		if end <= len(header) {
			if zipName := string(header[start:end]); zipName != "" {
				filename = filepath.Base(zipName)
				Debug("determined filename from zip local header: %s", zipName)
			}
		}
	}

	if filepath.Ext(filename) == "" {
		if kind, _ := filetype.Match(header); kind != filetype.Unknown && kind.Extension != "" {
			filename += "." + kind.Extension
			Debug("added extension %q from magic-byte sniff for %s", kind.Extension, rawurl)
		}
	}

	if filename == "" || filename == "." || filename == "/" {
		filename = "download.bin"
	}

	return filename
}

func sanitizeFilename(name string) string {
	// Replace backslashes with forward slashes first so filepath.Base treats them as separators
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "." {
		return name
	}
	if name == "/" || name == "\\" {
		return "_"
	}
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "_")
	// Additional standard replacements for windows/linux safety
	name = strings.ReplaceAll(name, ":", "_")
	name = strings.ReplaceAll(name, "*", "_")
	name = strings.ReplaceAll(name, "?", "_")
	name = strings.ReplaceAll(name, "\"", "_")
	name = strings.ReplaceAll(name, "<", "_")
	name = strings.ReplaceAll(name, ">", "_")
	name = strings.ReplaceAll(name, "|", "_")
	return name
}
