package harvest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
)

func indexEntry(link, name, pos, years string, active bool) string {
	a := `<a href="` + link + `">` + name + `</a>`
	if active {
		a = "<b>" + a + "</b>"
	}
	return "<p>" + a + " (" + pos + ") " + years + "</p>"
}

func indexBody(entries ...string) string {
	body := `<html><body><div id="div_players">`
	for _, e := range entries {
		body += "\n" + e
	}
	return body + `</div></body></html>`
}

// serveIndex registers all 26 letter pages, empty unless overridden.
func serveIndex(site *fakeSite, letters map[rune]string) {
	for c := 'A'; c <= 'Z'; c++ {
		body, ok := letters[c]
		if !ok {
			body = indexBody()
		}
		site.pages[fmt.Sprintf("/players/%c", c)] = body
	}
}

func TestDiscover_FreshRoster(t *testing.T) {
	site := newFakeSite()
	serveIndex(site, map[rune]string{
		'A': indexBody(
			indexEntry("/players/A/AlphAl00.htm", "Al Alpha", "QB", "2015-2024", true),
			indexEntry("/players/A/AdamAd00.htm", "Ad Adams", "RB-KR", "1998-2005", false),
		),
		'B': indexBody(
			indexEntry("/players/B/BravBo00.htm", "Bo Bravo", "WR", "1980-1991", false),
		),
	})
	srv := site.serve(t)

	cfg := testConfig(t, srv.URL)
	svc := newTestService(t, cfg)
	if err := svc.Discover(context.Background()); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	store := reloadRoster(t, cfg)
	if store.Len() != 3 {
		t.Fatalf("roster size = %d, want 3", store.Len())
	}

	all := store.All()
	first := all[0]
	if first.PlayerID != "1" || first.Link != "/players/A/AlphAl00.htm" || first.Name != "Al Alpha" {
		t.Errorf("first entry = %+v", first)
	}
	if first.Position != "QB" || first.CareerBegin != 2015 {
		t.Errorf("first entry parse = %+v", first)
	}
	if first.CareerEnd == nil || *first.CareerEnd != 2024 {
		t.Errorf("career end = %v, want 2024", first.CareerEnd)
	}
	if !first.Active {
		t.Error("bold entry should be active")
	}
	if first.Scraped {
		t.Error("discovered entry must start pending")
	}

	second := all[1]
	if second.PlayerID != "2" || second.Position != "RB-KR" || second.Active {
		t.Errorf("second entry = %+v", second)
	}
	if third := all[2]; third.PlayerID != "3" || third.Name != "Bo Bravo" {
		t.Errorf("third entry = %+v", third)
	}
}

// WHAT: re-discovery over an existing roster appends only unknown
// links and never touches existing rows.
// WHY: ids are referenced by the stats table and scraped flags encode
// harvest progress; discovery must not reset either.
func TestDiscover_MergeKeepsExisting(t *testing.T) {
	site := newFakeSite()
	serveIndex(site, map[rune]string{
		'A': indexBody(
			indexEntry("/players/A/AlphAl00.htm", "Al Alpha", "QB", "2015-2024", true),
			indexEntry("/players/A/AdamAd00.htm", "Ad Adams", "RB", "1998-2005", false),
			indexEntry("/players/A/AndeAn00.htm", "An Anders", "TE", "2020-2024", true),
		),
	})
	srv := site.serve(t)

	cfg := testConfig(t, srv.URL)
	done := pendingEntry("1", "/players/A/AlphAl00.htm", "Al Alpha")
	done.Scraped = true
	writeRoster(t, cfg,
		done,
		pendingEntry("2", "/players/A/AdamAd00.htm", "Ad Adams"),
	)

	svc := newTestService(t, cfg)
	if err := svc.Discover(context.Background()); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	store := reloadRoster(t, cfg)
	if store.Len() != 3 {
		t.Fatalf("roster size = %d, want 3", store.Len())
	}
	kept, ok := store.Get("1")
	if !ok || !kept.Scraped || kept.Name != "Al Alpha" {
		t.Errorf("existing entry changed: %+v", kept)
	}
	added, ok := store.Get("3")
	if !ok || added.Link != "/players/A/AndeAn00.htm" || added.Scraped {
		t.Errorf("appended entry = %+v", added)
	}
}

// WHAT: one unreachable index page aborts discovery before anything
// is written.
func TestDiscover_IndexFailureAborts(t *testing.T) {
	site := newFakeSite()
	serveIndex(site, map[rune]string{
		'A': indexBody(
			indexEntry("/players/A/AlphAl00.htm", "Al Alpha", "QB", "2015-2024", true),
		),
	})
	site.codes["/players/M"] = 500
	srv := site.serve(t)

	cfg := testConfig(t, srv.URL)
	svc := newTestService(t, cfg)
	err := svc.Discover(context.Background())
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("err = %v, want ErrIndexUnavailable", err)
	}
	if _, statErr := os.Stat(cfg.RosterPath()); !os.IsNotExist(statErr) {
		t.Error("partial roster was written")
	}
}

func TestDiscover_MissingSectionAborts(t *testing.T) {
	site := newFakeSite()
	serveIndex(site, nil)
	site.pages["/players/K"] = `<html><body><p>maintenance</p></body></html>`
	srv := site.serve(t)

	cfg := testConfig(t, srv.URL)
	svc := newTestService(t, cfg)
	if err := svc.Discover(context.Background()); !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("err = %v, want ErrIndexUnavailable", err)
	}
}

func TestDiscover_SkipsMalformedEntries(t *testing.T) {
	site := newFakeSite()
	serveIndex(site, map[rune]string{
		'A': indexBody(
			`<p>No Link Here (QB) 2000-2001</p>`,
			`<p><a href="/players/A/NoyeNo00.htm">No Years</a> (RB)</p>`,
			indexEntry("/players/A/GoodGu00.htm", "Gu Good", "C", "1975-1985", false),
		),
	})
	srv := site.serve(t)

	cfg := testConfig(t, srv.URL)
	svc := newTestService(t, cfg)
	if err := svc.Discover(context.Background()); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	store := reloadRoster(t, cfg)
	if store.Len() != 1 {
		t.Fatalf("roster size = %d, want 1", store.Len())
	}
	if e := store.All()[0]; e.Link != "/players/A/GoodGu00.htm" || e.PlayerID != "1" {
		t.Errorf("kept entry = %+v", e)
	}
}

// The site comment-wraps secondary markup; a comment-wrapped index
// section must still parse.
func TestDiscover_CommentWrappedSection(t *testing.T) {
	site := newFakeSite()
	serveIndex(site, map[rune]string{
		'A': `<html><body><!--<div id="div_players">` +
			indexEntry("/players/A/AlphAl00.htm", "Al Alpha", "QB", "2015-2024", false) +
			`</div>--></body></html>`,
	})
	srv := site.serve(t)

	cfg := testConfig(t, srv.URL)
	svc := newTestService(t, cfg)
	if err := svc.Discover(context.Background()); err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got := reloadRoster(t, cfg).Len(); got != 1 {
		t.Errorf("roster size = %d, want 1", got)
	}
}
