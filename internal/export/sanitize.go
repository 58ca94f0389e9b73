package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// SanitizeName keeps letters, digits and a few punctuation marks of s,
// replacing everything else with underscores. Leading dots are dropped so the
// result never names a hidden file.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsControl(r):
		case isAllowedNameRune(r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimLeft(strings.TrimSpace(b.String()), ".")
	if maxLen > 0 {
		if runes := []rune(cleaned); len(runes) > maxLen {
			cleaned = strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// ValidateExportDir checks that dir is a clean path to an existing directory.
func ValidateExportDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("export dir is required")
	}

	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == ".." {
			return fmt.Errorf("export dir cannot contain path traversal")
		}
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("export dir must be a clean path")
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("export dir %s does not exist", dir)
		}
		return fmt.Errorf("invalid export dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("export dir %s is not a directory", dir)
	}
	return nil
}

// outputPath places an export's file in its own directory under dir.
func outputPath(dir, exportID, fileName string) string {
	return filepath.Join(dir, exportID, fileName)
}
