package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"shiplog/internal/client"
	"shiplog/internal/composer"
	"shiplog/internal/hashtag"
	"shiplog/internal/models"
)

type attachment struct {
	name    string
	content []byte
}

// ship drives a composer the way the web form does: type the text, link the
// first #tag whose name matches a suggestion exactly, attach the image, submit.
func ship(ctx context.Context, c *client.Client, text string, image *attachment, out io.Writer) (*models.Post, error) {
	info, err := c.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("not signed in: %w", err)
	}

	comp := composer.New(composer.Config{
		Source:    c,
		Submitter: c,
		Uploader:  c,
		OnError:   func(err error) { fmt.Fprintf(out, "error: %v\n", err) },
	})
	comp.SetUser(info.Session.UserID)

	caret, ok := tagCaret(text)
	if !ok {
		caret = len([]rune(text))
	}
	panel, err := comp.Type(ctx, text, caret)
	if err != nil {
		return nil, err
	}
	if ok {
		term := hashtag.Detect(text, caret).Term
		if cand, found := exactMatch(panel, term); found {
			if _, err := comp.SelectProject(cand); err != nil {
				return nil, err
			}
			fmt.Fprintf(out, "linked #%s\n", cand.Name)
		} else {
			fmt.Fprintf(out, "no project named #%s%s\n", term, suggestions(panel))
		}
	}

	if image != nil {
		url, err := comp.AttachImage(ctx, image.name, image.content)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "uploaded %s\n", url)
	}

	return comp.Submit(ctx)
}

// tagCaret returns the rune offset just past the first complete #tag.
func tagCaret(text string) (int, bool) {
	runes := []rune(text)
	for i := 1; i <= len(runes); i++ {
		if i < len(runes) && isTagRune(runes[i]) {
			continue
		}
		if tok := hashtag.Detect(text, i); tok.Active && tok.Term != "" {
			return i, true
		}
	}
	return 0, false
}

func isTagRune(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func exactMatch(p hashtag.Panel, term string) (hashtag.Candidate, bool) {
	for _, cand := range p.Items {
		if strings.EqualFold(cand.Name, term) {
			return cand, true
		}
	}
	return hashtag.Candidate{}, false
}

func suggestions(p hashtag.Panel) string {
	if len(p.Items) == 0 {
		return ""
	}
	names := make([]string, 0, len(p.Items))
	for _, cand := range p.Items {
		names = append(names, "#"+cand.Name)
	}
	return " (did you mean " + strings.Join(names, ", ") + "?)"
}
