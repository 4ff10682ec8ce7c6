package render

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/goliatone/go-slug"

	"github.com/starford/grove/internal/models"
)

// IndexFile is the output file of the entry note.
const IndexFile = "index.html"

// Slug returns the URL-safe form of a note name.
func Slug(name models.NoteName) string {
	if s, err := slug.Normalize(string(name)); err == nil && s != "" {
		return s
	}
	return fallbackSlug(string(name))
}

// OutputName returns the file a note would be written to on its own.
// OutputNames settles clashes between notes.
func OutputName(n *models.Note) string {
	if n.IsEntry {
		return IndexFile
	}
	return Slug(n.Name) + ".html"
}

// OutputNames assigns every note a distinct output file. The entry note always
// owns IndexFile. Any other note whose file is already taken gets a numeric
// suffix (<slug>-2.html, <slug>-3.html, ...) in discovery order; such notes
// are returned in renamed, mapped to the file they clashed on.
func OutputNames(notes []*models.Note) (files, renamed map[models.NoteName]string) {
	files = make(map[models.NoteName]string, len(notes))
	renamed = make(map[models.NoteName]string)
	taken := make(map[string]struct{}, len(notes))

	for _, n := range notes {
		if n.IsEntry {
			files[n.Name] = IndexFile
			taken[IndexFile] = struct{}{}
		}
	}
	for _, n := range notes {
		if n.IsEntry {
			continue
		}
		want := OutputName(n)
		file := want
		base := strings.TrimSuffix(want, ".html")
		for i := 2; ; i++ {
			if _, clash := taken[file]; !clash {
				break
			}
			file = fmt.Sprintf("%s-%d.html", base, i)
		}
		if file != want {
			renamed[n.Name] = want
		}
		files[n.Name] = file
		taken[file] = struct{}{}
	}
	return files, renamed
}

func fallbackSlug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "note"
	}
	return out
}
