package report

import (
	"fmt"
	"strings"

	"github.com/dshills/clauseaudit/internal/schema"
)

func renderContent(items []item) string {
	chunks := make([]string, 0, len(items))
	for _, it := range items {
		switch it.kind {
		case itemHeading1:
			chunks = append(chunks, "# "+it.text)
		case itemHeading2:
			chunks = append(chunks, "## "+it.text)
		case itemHeading3:
			chunks = append(chunks, "### "+it.text)
		case itemParagraph:
			chunks = append(chunks, it.text)
		case itemBold:
			chunks = append(chunks, "**"+it.text+"**")
		case itemList:
			lines := make([]string, len(it.entries))
			for i, e := range it.entries {
				lines[i] = fmt.Sprintf("%d. %s", i+1, e)
			}
			chunks = append(chunks, strings.Join(lines, "\n"))
		case itemTable:
			chunks = append(chunks, markdownTable(it.text, it.rows))
		}
	}
	return strings.Join(chunks, "\n\n") + "\n"
}

func markdownTable(caption string, rows [][]string) string {
	var sb strings.Builder
	if caption != "" {
		sb.WriteString("**" + caption + "**\n\n")
	}
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = strings.ReplaceAll(c, "|", `\|`)
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |")
		if i == 0 {
			sb.WriteString("\n|")
			for j := range row {
				if j == 0 {
					sb.WriteString(":----:|")
				} else {
					sb.WriteString(":-----|")
				}
			}
		}
		if i < len(rows)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func renderBlocks(items []item) []schema.Block {
	blocks := make([]schema.Block, 0, len(items))
	for _, it := range items {
		switch it.kind {
		case itemHeading1:
			blocks = append(blocks, schema.Block{Type: schema.BlockHeading1, Text: it.text})
		case itemHeading2:
			blocks = append(blocks, schema.Block{Type: schema.BlockHeading2, Text: it.text})
		case itemHeading3:
			blocks = append(blocks, schema.Block{Type: schema.BlockHeading3, Text: it.text})
		case itemParagraph:
			blocks = append(blocks, schema.Block{Type: schema.BlockParagraph, Text: it.text})
		case itemBold:
			blocks = append(blocks, schema.Block{Type: schema.BlockBold, Text: it.text})
		case itemList:
			for i, e := range it.entries {
				blocks = append(blocks, schema.Block{Type: schema.BlockParagraph, Text: fmt.Sprintf("%d. %s", i+1, e)})
			}
		case itemTable:
			if it.text != "" {
				blocks = append(blocks, schema.Block{Type: schema.BlockBold, Text: it.text})
			}
			rows := make([][]string, len(it.rows))
			for i, r := range it.rows {
				rows[i] = append([]string(nil), r...)
			}
			blocks = append(blocks, schema.Block{Type: schema.BlockTable, Rows: rows})
		}
	}
	return blocks
}

// BlocksToMarkdown re-renders structured blocks as markdown. Export
// adapters that only receive blocks use it; for assembled reports it
// reproduces Report.Content.
func BlocksToMarkdown(blocks []schema.Block) string {
	var chunks []string
	var list []string
	flush := func() {
		if len(list) > 0 {
			chunks = append(chunks, strings.Join(list, "\n"))
			list = nil
		}
	}
	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		if b.Type == schema.BlockParagraph && isListEntry(b.Text) {
			list = append(list, b.Text)
			continue
		}
		flush()
		switch b.Type {
		case schema.BlockHeading1:
			chunks = append(chunks, "# "+b.Text)
		case schema.BlockHeading2:
			chunks = append(chunks, "## "+b.Text)
		case schema.BlockHeading3:
			chunks = append(chunks, "### "+b.Text)
		case schema.BlockParagraph:
			chunks = append(chunks, b.Text)
		case schema.BlockBold:
			if i+1 < len(blocks) && blocks[i+1].Type == schema.BlockTable {
				chunks = append(chunks, markdownTable(b.Text, blocks[i+1].Rows))
				i++
				continue
			}
			chunks = append(chunks, "**"+b.Text+"**")
		case schema.BlockTable:
			chunks = append(chunks, markdownTable("", b.Rows))
		}
	}
	flush()
	return strings.Join(chunks, "\n\n") + "\n"
}

// isListEntry reports whether text starts with "N. ".
func isListEntry(text string) bool {
	i := 0
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	return i > 0 && strings.HasPrefix(text[i:], ". ")
}
