// Package enrich fetches per-entry detail pages across the browser pool and
// folds the richer fields back into the candidates.
package enrich

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/shanehull/kidsource/internal/browser"
	"github.com/shanehull/kidsource/internal/extract"
	"github.com/shanehull/kidsource/internal/model"
)

const (
	detailTimeout = 30 * time.Second
	settleDelay   = 1 * time.Second
)

type Enricher struct {
	pool     *browser.Pool
	geocoder *Geocoder
	logger   *slog.Logger
}

func New(pool *browser.Pool, geocoder *Geocoder, logger *slog.Logger) *Enricher {
	return &Enricher{pool: pool, geocoder: geocoder, logger: logger}
}

// EnrichAll fans the candidates out across the pool: one static partition
// per browser, processed sequentially within a partition, so concurrent
// render load never exceeds pool size. A failure on one entry leaves that
// candidate as extracted and bumps the error count; a dead browser requeues
// its remaining partition onto the survivors. All browsers dying is the one
// fatal outcome.
func (e *Enricher) EnrichAll(ctx context.Context, cands []*model.Candidate) (int, error) {
	var todo []*model.Candidate
	for _, c := range cands {
		if c.RegistrationURL != "" {
			todo = append(todo, c)
		}
	}
	if len(todo) == 0 {
		return 0, nil
	}

	var (
		mu       sync.Mutex
		requeued []*model.Candidate
		errCount int
	)
	countErr := func() { mu.Lock(); errCount++; mu.Unlock() }
	requeue := func(items []*model.Candidate) {
		mu.Lock()
		requeued = append(requeued, items...)
		mu.Unlock()
	}

	parts := partition(todo, e.pool.Live())
	var wg sync.WaitGroup
	for _, part := range parts {
		wg.Add(1)
		go func(part []*model.Candidate) {
			defer wg.Done()
			e.drain(ctx, part, countErr, requeue)
		}(part)
	}
	wg.Wait()

	// At-least-once: items stranded by a crashed browser get a second pass
	// on whatever is still alive.
	for len(requeued) > 0 {
		if e.pool.Live() == 0 {
			return errCount, browser.ErrNoSessions
		}
		pending := requeued
		requeued = nil
		e.drain(ctx, pending, countErr, requeue)
	}
	return errCount, nil
}

// drain processes items sequentially on a single acquired session.
func (e *Enricher) drain(ctx context.Context, items []*model.Candidate, countErr func(), requeue func([]*model.Candidate)) {
	s, err := e.pool.Acquire(ctx)
	if err != nil {
		requeue(items)
		return
	}
	defer e.pool.Release(s)

	for i, c := range items {
		if err := e.enrichOne(ctx, s, c); err != nil {
			if !s.Alive() {
				// The rest of this partition moves to a live session; this
				// item goes with it since its failure was the crash itself.
				requeue(items[i:])
				return
			}
			e.logger.Warn("Detail enrichment failed", "external_id", c.ExternalID, "err", err)
			countErr()
		}
	}
}

func (e *Enricher) enrichOne(ctx context.Context, s *browser.Session, c *model.Candidate) error {
	var html string
	err := s.Run(detailTimeout,
		chromedp.Navigate(c.RegistrationURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return err
	}

	detail, err := ParseDetail(html)
	if err != nil {
		return err
	}
	detail.Apply(c)

	if c.Address != "" && c.Latitude == nil && e.geocoder != nil {
		lat, lng, err := e.geocoder.Geocode(ctx, c.Address)
		if err != nil {
			// Geocoding is best-effort; the address alone is still useful.
			e.logger.Debug("Geocode failed", "address", c.Address, "err", err)
		} else {
			c.Latitude, c.Longitude = lat, lng
		}
	}
	return nil
}

func partition(items []*model.Candidate, n int) [][]*model.Candidate {
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}
	parts := make([][]*model.Candidate, 0, n)
	size := (len(items) + n - 1) / n
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		parts = append(parts, items[start:end])
	}
	return parts
}

// Detail is what a course page adds on top of the listing extraction.
type Detail struct {
	LocationName    string
	Address         string
	Instructor      string
	FullDescription string
	WhatToBring     string
	Sessions        []model.Session
	Prerequisites   []model.Prerequisite
}

// Apply folds non-empty detail fields into the candidate, leaving the
// listing-level extraction in place for anything the page didn't carry.
func (d *Detail) Apply(c *model.Candidate) {
	if d.LocationName != "" {
		c.LocationName = d.LocationName
	}
	if d.Address != "" {
		c.Address = d.Address
	}
	if d.Instructor != "" {
		c.Instructor = d.Instructor
	}
	if d.FullDescription != "" {
		c.FullDescription = d.FullDescription
		if c.Description == "" {
			c.Description = firstSentence(d.FullDescription)
		}
	}
	if d.WhatToBring != "" {
		c.WhatToBring = d.WhatToBring
	}
	if len(d.Sessions) > 0 {
		c.Sessions = d.Sessions
	}
	if len(d.Prerequisites) > 0 {
		c.Prerequisites = d.Prerequisites
	}
}

// ParseDetail reads a rendered course page. It is a pure function of the
// HTML so the selector heuristics can be pinned down with literal fixtures.
func ParseDetail(html string) (*Detail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	d := &Detail{
		LocationName:    textOf(doc.Selection, ".bm-location-name, .course-location .name"),
		Address:         textOf(doc.Selection, ".bm-location-address, .course-location address"),
		Instructor:      textOf(doc.Selection, ".bm-instructor-name, .instructor"),
		FullDescription: textOf(doc.Selection, ".bm-course-description, .course-description"),
	}

	// Labeled definition pairs cover whatever the classed selectors missed.
	doc.Find("dt, .bm-detail-label").Each(func(_ int, s *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(s.Text()))
		value := strings.TrimSpace(s.Next().Text())
		if value == "" {
			return
		}
		switch {
		case strings.Contains(label, "instructor") && d.Instructor == "":
			d.Instructor = value
		case strings.Contains(label, "what to bring") && d.WhatToBring == "":
			d.WhatToBring = value
		case strings.Contains(label, "location") && d.LocationName == "":
			d.LocationName = value
		case strings.Contains(label, "address") && d.Address == "":
			d.Address = value
		}
	})

	doc.Find(".bm-session-row, table.sessions tbody tr").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		sess := model.Session{
			Date:     textOf(s, ".bm-session-date, td:nth-child(1)"),
			Location: textOf(s, ".bm-session-location, td:nth-child(3)"),
		}
		if start, end, ok := extract.ParseTimeRange(text); ok {
			sess.StartTime, sess.EndTime = start, end
		}
		if t, err := time.Parse("Jan 2, 2006", sess.Date); err == nil {
			sess.DayOfWeek = t.Weekday().String()
		}
		if sess.Date != "" || sess.StartTime != "" {
			d.Sessions = append(d.Sessions, sess)
		}
	})

	doc.Find(".bm-prerequisite a, .prerequisites a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		name := strings.TrimSpace(s.Text())
		if name == "" {
			return
		}
		d.Prerequisites = append(d.Prerequisites, model.Prerequisite{
			Name:     name,
			CourseID: courseIDFromURL(href),
			URL:      href,
		})
	})

	return d, nil
}

func textOf(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}

func courseIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, name := range []string{"courseId", "course_id", "courseID", "id"} {
		if v := q.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func firstSentence(text string) string {
	if idx := strings.IndexAny(text, ".\n"); idx > 0 {
		return strings.TrimSpace(text[:idx+1])
	}
	return text
}
