// Package parser reads decks written as markdown.
//
// A deck file looks like:
//
//	# Spanish basics
//	Everyday words.
//	Tags: spanish, vocab
//
//	Q: hola
//	A: hello
//	---
//	Q: What does "gracias" mean?
//	A: thank you
//
// The heading names the deck, other lines before the first card describe it, and
// each card is a Q: block (front) followed by an A: block (back). Blocks may span
// several lines and end at the next prefix, a --- separator or the end of file.
package parser

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	frontPrefix = "Q:"
	backPrefix  = "A:"
	tagsPrefix  = "Tags:"
	separator   = "---"
)

type state int

const (
	readingHeader state = iota
	readingFront
	readingBack
	betweenCards
)

// Entry is one card as written in the file.
type Entry struct {
	Front string
	Back  string
	Line  int // line of the Q: prefix
}

// Document is a parsed deck file.
type Document struct {
	Title       string
	Description string
	Tags        []string
	Entries     []Entry
}

// ParseFile parses the deck at path. A file without a heading is named after
// the file itself.
func ParseFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	doc, err := Parse(file)
	if err != nil {
		return nil, err
	}
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// Parse reads a deck document from r.
func Parse(r io.Reader) (*Document, error) {
	doc := &Document{Tags: []string{}}
	var (
		current     Entry
		block       []string
		description []string
		st          = readingHeader
		lineNo      int
	)

	flushBlock := func() {
		text := strings.TrimSpace(strings.Join(block, "\n"))
		switch st {
		case readingFront:
			current.Front = text
		case readingBack:
			current.Back = text
		}
		block = nil
	}
	finishCard := func() {
		flushBlock()
		if current.Front != "" {
			doc.Entries = append(doc.Entries, current)
		}
		current = Entry{}
		st = betweenCards
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, frontPrefix):
			if st == readingFront || st == readingBack {
				finishCard()
			}
			st = readingFront
			current.Line = lineNo
			block = append(block, strings.TrimPrefix(line[len(frontPrefix):], " "))
		case strings.HasPrefix(line, backPrefix) && st == readingFront:
			flushBlock()
			st = readingBack
			block = append(block, strings.TrimPrefix(line[len(backPrefix):], " "))
		case trimmed == separator:
			if st == readingFront || st == readingBack {
				finishCard()
			}
		case st == readingHeader:
			switch {
			case strings.HasPrefix(trimmed, "# ") && doc.Title == "":
				doc.Title = strings.TrimSpace(trimmed[2:])
			case strings.HasPrefix(trimmed, tagsPrefix):
				doc.Tags = splitTags(trimmed[len(tagsPrefix):])
			case trimmed != "":
				description = append(description, trimmed)
			}
		case st == readingFront || st == readingBack:
			block = append(block, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if st == readingFront || st == readingBack {
		finishCard()
	}

	doc.Description = strings.Join(description, "\n")
	return doc, nil
}

func splitTags(s string) []string {
	tags := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
