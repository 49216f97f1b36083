package regulation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultCategory is assigned to articles outside any chapter heading.
const DefaultCategory = "未分类"

// minArticleLength drops article bodies of this many runes or fewer.
const minArticleLength = 20

// Article is one article of a law, as parsed from markdown.
type Article struct {
	ID            string `json:"id"`
	LawName       string `json:"law_name"`
	ArticleNumber string `json:"article_number"`
	Content       string `json:"content"`
	Category      string `json:"category"`
	EffectiveDate string `json:"effective_date,omitempty"`
}

var (
	lawTitle      = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	articleHeader = regexp.MustCompile(`^(?:#{2,3}\s*)?(第[一二三四五六七八九十百千\d]+条)`)
	chapterHeader = regexp.MustCompile(`^#{2,3}\s*(.+)$`)
	headingMarks  = regexp.MustCompile(`(?m)^#{1,3}\s*`)
)

// ParseFile parses a markdown law file. The law name is taken from the
// first "# " heading, or the file name when there is none.
func ParseFile(path string) ([]Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading regulation file %q: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(string(data), name), nil
}

// ParseDir parses every .md file in dir in name order.
func ParseDir(dir string) ([]Article, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	var all []Article
	for _, m := range matches {
		arts, err := ParseFile(m)
		if err != nil {
			return nil, err
		}
		all = append(all, arts...)
	}
	return all, nil
}

// Parse splits markdown content into articles. An article starts at a line
// (optionally a ## or ### heading) beginning with "第N条" and runs until the
// next one. Chapter headings between articles set the category of the
// articles that follow.
func Parse(content, fallbackName string) []Article {
	law := fallbackName
	if m := lawTitle.FindStringSubmatch(content); m != nil {
		law = strings.TrimSpace(m[1])
	}

	var (
		out      []Article
		number   string
		body     []string
		category = DefaultCategory
	)
	flush := func() {
		if number == "" {
			return
		}
		text := strings.TrimSpace(headingMarks.ReplaceAllString(strings.Join(body, "\n"), ""))
		if utf8.RuneCountInString(text) > minArticleLength {
			out = append(out, Article{LawName: law, ArticleNumber: number, Content: text, Category: category})
		}
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if m := articleHeader.FindStringSubmatch(trimmed); m != nil {
			flush()
			number = m[1]
			body = []string{line}
			continue
		}
		if m := chapterHeader.FindStringSubmatch(trimmed); m != nil {
			flush()
			number, body = "", nil
			category = strings.TrimSpace(m[1])
			continue
		}
		if number != "" {
			body = append(body, line)
		}
	}
	flush()
	return out
}
