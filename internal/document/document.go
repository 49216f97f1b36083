package document

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
)

// Document holds a loaded product document with derived metadata.
type Document struct {
	Path      string
	Hash      string // "sha256:<hex>"
	Raw       string // original content
	LineCount int
}

// Load reads a product document from disk and computes its hash.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	d := FromText(string(data))
	d.Path = path
	return d, nil
}

// FromText wraps inline document content.
func FromText(text string) *Document {
	sum := sha256.Sum256([]byte(text))
	return &Document{
		Hash:      fmt.Sprintf("sha256:%x", sum),
		Raw:       text,
		LineCount: countLines(text),
	}
}

// countLines counts lines, ignoring the empty element after a final newline.
func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

// Section is one markdown heading of the document.
type Section struct {
	Line  int    `json:"line_number"`
	Level int    `json:"level"`
	Title string `json:"title"`
}

// Structure summarises the document layout.
type Structure struct {
	TotalLines         int       `json:"total_lines"`
	Sections           []Section `json:"sections"`
	HasTableOfContents bool      `json:"has_table_of_contents"`
}

// Structure lists the markdown headings and notes a table of contents.
func (d *Document) Structure() Structure {
	lines := strings.Split(d.Raw, "\n")
	s := Structure{TotalLines: len(lines), Sections: []Section{}}
	for i, line := range lines {
		if strings.HasPrefix(line, "#") {
			title := strings.TrimLeft(line, "#")
			s.Sections = append(s.Sections, Section{
				Line:  i + 1,
				Level: len(line) - len(title),
				Title: strings.TrimSpace(title),
			})
		}
		if strings.Contains(line, "目录") || strings.Contains(line, "目　录") {
			s.HasTableOfContents = true
		}
	}
	return s
}
