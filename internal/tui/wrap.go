package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const bulletPrefix = "• "

// wrapText breaks text into lines no wider than width display cells.
// Words wider than width are split.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}
	var lines []string
	var line strings.Builder
	lineWidth := 0
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}
	for _, word := range words {
		for _, part := range splitWide(word, width) {
			partWidth := runewidth.StringWidth(part)
			if lineWidth > 0 && lineWidth+1+partWidth > width {
				flush()
			}
			if lineWidth > 0 {
				line.WriteByte(' ')
				lineWidth++
			}
			line.WriteString(part)
			lineWidth += partWidth
		}
	}
	if lineWidth > 0 {
		flush()
	}
	return lines
}

// wrapBullet wraps text behind a bullet with a hanging indent.
func wrapBullet(text string, width int) []string {
	indent := runewidth.StringWidth(bulletPrefix)
	inner := wrapText(text, width-indent)
	for i, line := range inner {
		if i == 0 {
			inner[i] = bulletPrefix + line
			continue
		}
		inner[i] = strings.Repeat(" ", indent) + line
	}
	return inner
}

func splitWide(word string, width int) []string {
	if runewidth.StringWidth(word) <= width {
		return []string{word}
	}
	var parts []string
	var part strings.Builder
	partWidth := 0
	for _, r := range word {
		w := runewidth.RuneWidth(r)
		if partWidth > 0 && partWidth+w > width {
			parts = append(parts, part.String())
			part.Reset()
			partWidth = 0
		}
		part.WriteRune(r)
		partWidth += w
	}
	if part.Len() > 0 {
		parts = append(parts, part.String())
	}
	return parts
}
