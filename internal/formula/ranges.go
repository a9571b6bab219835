package formula

import (
	"strings"

	"github.com/xuri/efp"

	"github.com/JnliaH/ChromaQuant/internal/cell"
)

// Ranges returns the cell and range references of a resolved formula in
// order of appearance, e.g. 'S'!$C$5:$C$7. Sheet parts are always quoted.
func Ranges(resolved string) []string {
	if !strings.HasPrefix(resolved, "=") {
		resolved = "=" + resolved
	}
	ps := efp.ExcelParser()
	tokens := ps.Parse(resolved)

	var out []string
	for _, token := range tokens {
		if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
			continue
		}
		out = append(out, requote(token.TValue))
	}
	return out
}

// requote restores the sheet quoting the tokenizer strips from a reference.
func requote(ref string) string {
	i := strings.LastIndex(ref, "!")
	if i <= 0 {
		return ref
	}
	return cell.QuoteSheet(ref[:i]) + ref[i:]
}

// Sheets returns the distinct sheet names a resolved formula refers to.
func Sheets(resolved string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, ref := range Ranges(resolved) {
		i := strings.LastIndex(ref, "!")
		if i < 0 {
			continue
		}
		name := ref[:i]
		if strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") && len(name) >= 2 {
			name = strings.ReplaceAll(name[1:len(name)-1], "''", "'")
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Unresolved reports whether text still contains insert delimiters.
func Unresolved(text string) bool {
	return strings.Contains(text, "|")
}
