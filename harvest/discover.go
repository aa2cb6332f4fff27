package harvest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/moisson/harvest/internal/roster"
)

var (
	positionRe = regexp.MustCompile(`\(([^)]+)\)`)
	yearsRe    = regexp.MustCompile(`\b(\d{4})-(\d{4})\b`)
)

// The site wraps secondary content in HTML comments; strip the markers
// before parsing so nothing hides from the selector.
var indexCommentStripper = strings.NewReplacer("<!--", "", "-->", "")

// Discover crawls the alphabetical player index pages and writes the
// roster checkpoint file with every player set to pending.
//
// If a roster already exists its rows are kept verbatim (ids and
// scraped flags included) and only players with unknown links are
// appended, with ids continuing after the current maximum. Any index
// page that cannot be fetched or parsed aborts the whole discovery;
// a partial roster must not masquerade as complete.
func (s *Service) Discover(ctx context.Context) error {
	var entries []roster.Entry
	known := make(map[string]bool)
	nextID := 1

	existing, err := roster.Load(s.cfg.RosterPath())
	switch {
	case err == nil:
		entries = existing.All()
		for _, e := range entries {
			known[e.Link] = true
			if n, convErr := strconv.Atoi(e.PlayerID); convErr == nil && n >= nextID {
				nextID = n + 1
			}
		}
		s.logger.Info("merging into existing roster", "players", len(entries))
	case errors.Is(err, fs.ErrNotExist):
		// fresh roster
	default:
		return err
	}

	added := 0
	for letter := 'A'; letter <= 'Z'; letter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		link := fmt.Sprintf("/players/%c", letter)
		page, err := s.client.Fetch(ctx, link)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrIndexUnavailable, link, err)
		}
		found, err := parseIndexPage(page.Body, s.logger)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrIndexUnavailable, link, err)
		}
		for _, e := range found {
			if known[e.Link] {
				continue
			}
			known[e.Link] = true
			e.PlayerID = strconv.Itoa(nextID)
			nextID++
			entries = append(entries, e)
			added++
		}
		s.logger.Info("index page crawled", "letter", string(letter), "players", len(found))
	}

	if err := roster.Write(s.cfg.RosterPath(), entries); err != nil {
		return err
	}
	s.logger.Info("roster written",
		"path", s.cfg.RosterPath(),
		"total", len(entries),
		"added", added)
	return nil
}

// parseIndexPage extracts one roster entry per <p> inside
// div#div_players. Entries missing a link or a career year range are
// skipped with a warning.
func parseIndexPage(body []byte, logger *slog.Logger) ([]roster.Entry, error) {
	clean := indexCommentStripper.Replace(string(bytes.ToValidUTF8(body, nil)))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return nil, err
	}
	div := doc.Find("div#div_players")
	if div.Length() == 0 {
		return nil, errors.New("no div_players section")
	}

	var out []roster.Entry
	div.Find("p").Each(func(_ int, p *goquery.Selection) {
		a := p.Find("a").First()
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			logger.Warn("index entry without link", "text", strings.TrimSpace(p.Text()))
			return
		}
		text := p.Text()
		years := yearsRe.FindStringSubmatch(text)
		if years == nil {
			logger.Warn("index entry without career years", "link", href)
			return
		}
		begin, _ := strconv.Atoi(years[1])
		end, _ := strconv.Atoi(years[2])

		position := ""
		if m := positionRe.FindStringSubmatch(text); m != nil {
			position = strings.TrimSpace(m[1])
		}

		out = append(out, roster.Entry{
			Link:        strings.TrimSpace(href),
			Name:        strings.TrimSpace(a.Text()),
			Position:    position,
			CareerBegin: begin,
			CareerEnd:   &end,
			Active:      p.Find("b").Length() > 0,
		})
	})
	return out, nil
}
