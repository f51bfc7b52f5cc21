// Package navigate drives the facet form and the category walk over the
// provider's client-rendered listing page, producing raw entry blocks for
// extraction. Expanding or collapsing a group re-renders the DOM and
// invalidates node handles, so the walk never holds one: every step counts
// and clicks by re-resolved selector index.
package navigate

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/shanehull/kidsource/internal/browser"
	"github.com/shanehull/kidsource/internal/model"
)

const (
	initialLoadTimeout = 60 * time.Second
	stepTimeout        = 25 * time.Second
	settleDelay        = 1500 * time.Millisecond
)

type Navigator struct {
	site    Site
	logger  *slog.Logger
	pageCap int
}

func New(site Site, logger *slog.Logger, pageCap int) *Navigator {
	if pageCap < 1 {
		pageCap = 30
	}
	return &Navigator{site: site, logger: logger, pageCap: pageCap}
}

// Enumerate acquires one session and runs the whole listing walk on it:
// load, select all facets, then expand category -> subcategory -> entries,
// harvesting and collapsing as it goes. Only a failure to produce the
// initial result set is fatal; a bad group is skipped and reported in the
// skipped count so the run's error total reflects it.
func (n *Navigator) Enumerate(ctx context.Context, pool *browser.Pool) ([]model.RawEntry, int, error) {
	s, err := pool.Acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer pool.Release(s)

	sel := n.site.Selectors

	err = s.Run(initialLoadTimeout,
		chromedp.Navigate(n.site.ListingURL),
		chromedp.WaitVisible(sel.ResultsReady, chromedp.ByQuery),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("initial listing load: %w", err)
	}

	if err := n.selectAllFacets(s); err != nil {
		return nil, 0, fmt.Errorf("facet selection: %w", err)
	}

	var entries []model.RawEntry
	skipped := 0
	catCount, err := n.count(s, sel.CategoryToggle)
	if err != nil {
		return nil, 0, fmt.Errorf("counting categories: %w", err)
	}
	n.logger.Info("Walking listing", "categories", catCount)

	for ci := 0; ci < catCount; ci++ {
		category, _ := n.textAt(s, sel.CategoryToggle, ci)
		if _, err := n.clickAt(s, sel.CategoryToggle, ci); err != nil {
			if !s.Alive() {
				return nil, skipped, fmt.Errorf("browser died during walk: %w", err)
			}
			n.logger.Warn("Category expand failed", "category", category, "err", err)
			skipped++
			continue
		}

		subCount, err := n.count(s, sel.SubcategoryToggle)
		if err != nil {
			if !s.Alive() {
				return nil, skipped, err
			}
			skipped++
			subCount = 0
		}

		for si := 0; si < subCount; si++ {
			subcategory, _ := n.textAt(s, sel.SubcategoryToggle, si)
			harvested, err := n.walkSubcategory(s, si, category, subcategory)
			if err != nil {
				if !s.Alive() {
					return nil, skipped, fmt.Errorf("browser died during walk: %w", err)
				}
				n.logger.Warn("Subcategory walk failed", "category", category, "subcategory", subcategory, "err", err)
				skipped++
				continue
			}
			entries = append(entries, harvested...)
		}

		// Collapse the category so the DOM stays bounded for the next group.
		if _, err := n.clickAt(s, sel.CategoryToggle, ci); err != nil && !s.Alive() {
			return nil, skipped, err
		}
	}

	n.logger.Info("Listing walk complete", "entries", len(entries), "skipped_groups", skipped)
	return entries, skipped, nil
}

func (n *Navigator) walkSubcategory(s *browser.Session, index int, category, subcategory string) ([]model.RawEntry, error) {
	sel := n.site.Selectors

	if _, err := n.clickAt(s, sel.SubcategoryToggle, index); err != nil {
		return nil, err
	}

	// Pagination inside a subcategory is a "show more" affordance; it is
	// bounded by a hard cap rather than clicked until exhaustion, because
	// the link has been observed to re-appear forever on some groups.
	for page := 0; page < n.pageCap; page++ {
		clicked, err := n.clickAt(s, sel.ShowMore, 0)
		if err != nil || !clicked {
			break
		}
	}

	// Everything matching the entry selector right now belongs to this
	// subcategory: sibling groups were collapsed before we got here.
	var nodes []struct {
		Text string `json:"text"`
		HTML string `json:"html"`
	}
	js := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).map(e => ({text: e.innerText, html: e.outerHTML}))`,
		strconv.Quote(sel.Entry),
	)
	if err := s.Run(stepTimeout, chromedp.Evaluate(js, &nodes)); err != nil {
		return nil, err
	}

	entries := make([]model.RawEntry, 0, len(nodes))
	for _, node := range nodes {
		if node.Text == "" {
			continue
		}
		entries = append(entries, model.RawEntry{
			Text:        node.Text,
			HTML:        node.HTML,
			Category:    category,
			Subcategory: subcategory,
		})
	}

	// Collapse before moving on.
	if _, err := n.clickAt(s, sel.SubcategoryToggle, index); err != nil {
		return nil, err
	}
	return entries, nil
}

// selectAllFacets checks every filter facet and resubmits the search. A page
// with no facet form at all is fine; failing to get results back after a
// submit is not.
func (n *Navigator) selectAllFacets(s *browser.Session) error {
	sel := n.site.Selectors
	js := fmt.Sprintf(`(() => {
		const boxes = document.querySelectorAll(%s);
		boxes.forEach(cb => { if (!cb.checked) cb.click(); });
		const submit = document.querySelector(%s);
		if (submit) submit.click();
		return boxes.length;
	})()`, strconv.Quote(sel.FacetCheckbox), strconv.Quote(sel.FacetSubmit))

	var checked int
	if err := s.Run(stepTimeout, chromedp.Evaluate(js, &checked)); err != nil {
		return err
	}
	n.logger.Debug("Facets selected", "count", checked)

	return s.Run(initialLoadTimeout,
		chromedp.Sleep(settleDelay),
		chromedp.WaitVisible(sel.ResultsReady, chromedp.ByQuery),
	)
}

func (n *Navigator) count(s *browser.Session, selector string) (int, error) {
	var count int
	js := fmt.Sprintf(`document.querySelectorAll(%s).length`, strconv.Quote(selector))
	err := s.Run(stepTimeout, chromedp.Evaluate(js, &count))
	return count, err
}

// clickAt clicks the i-th match of selector, resolving it fresh inside the
// page. Returns false when no such node exists anymore.
func (n *Navigator) clickAt(s *browser.Session, selector string, index int) (bool, error) {
	var clicked bool
	js := fmt.Sprintf(`(() => {
		const els = document.querySelectorAll(%s);
		if (els.length <= %d) return false;
		els[%d].scrollIntoView();
		els[%d].click();
		return true;
	})()`, strconv.Quote(selector), index, index, index)
	if err := s.Run(stepTimeout, chromedp.Evaluate(js, &clicked)); err != nil {
		return false, err
	}
	if clicked {
		if err := s.Run(stepTimeout, chromedp.Sleep(settleDelay)); err != nil {
			return clicked, err
		}
	}
	return clicked, nil
}

func (n *Navigator) textAt(s *browser.Session, selector string, index int) (string, error) {
	var text string
	js := fmt.Sprintf(`(() => {
		const els = document.querySelectorAll(%s);
		return els.length > %d ? els[%d].innerText.trim() : "";
	})()`, strconv.Quote(selector), index, index)
	err := s.Run(stepTimeout, chromedp.Evaluate(js, &text))
	return text, err
}
