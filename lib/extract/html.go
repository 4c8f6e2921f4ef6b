// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"errors"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// hidden elements contribute no visible text.
var hidden = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// htmlText walks the token stream once, collecting the first <title>
// and the visible text outside any title.
func htmlText(reader io.Reader, limit int) (title, body string, err error) {
	tokenizer := html.NewTokenizer(reader)
	titleText := newTextBuilder(1 << 10)
	bodyText := newTextBuilder(limit)

	var (
		hiddenDepth int
		inTitle     bool
		sawTitle    bool
	)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			err := tokenizer.Err()
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				return titleText.String(), bodyText.String(), nil
			}
			return "", "", err

		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			switch tag := atom.Lookup(name); {
			case hidden[tag]:
				hiddenDepth++
			case tag == atom.Title:
				inTitle = true
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch tag := atom.Lookup(name); {
			case hidden[tag] && hiddenDepth > 0:
				hiddenDepth--
			case tag == atom.Title && inTitle:
				inTitle = false
				sawTitle = true
			}

		case html.TextToken:
			if hiddenDepth > 0 {
				continue
			}
			if inTitle {
				if !sawTitle {
					titleText.write(string(tokenizer.Text()))
				}
				continue
			}
			bodyText.write(string(tokenizer.Text()))
		}
	}
}
