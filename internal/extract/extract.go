// Package extract turns a raw listing entry into candidate activity fields.
// Extraction is a pure function of the entry and a reference time: identical
// input always yields identical fields, which is what makes "no real change"
// detectable across runs.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shanehull/kidsource/internal/model"
)

// ErrNoExternalID marks entries with no stable identifier by any extraction
// path. These are never persisted.
var ErrNoExternalID = errors.New("no extractable external id")

var (
	idTokenRe     = regexp.MustCompile(`#(\d{4,8})\b`)
	costRe        = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	spotsRe       = regexp.MustCompile(`(?i)\b(\d+)\s+spots?\s+(?:left|remaining|available)`)
	spotsOfRe     = regexp.MustCompile(`(?i)\b(\d+)\s*(?:of|/)\s*(\d+)\s+spots?\b`)
	ageRangeRe    = regexp.MustCompile(`(?i)\b(\d+)\s*(?:-|–|to)\s*(\d+)\s*yrs?\b`)
	agePlusRe     = regexp.MustCompile(`(?i)\b(\d+)\s*\+\s*yrs?`)
	ageMonthsRe   = regexp.MustCompile(`(?i)\b(\d+)\s*mos?\b\s*(?:-|–|to)\s*(\d+)\s*(yrs?|mos?)\b`)
	monthsRangeRe = regexp.MustCompile(`(?i)\b(\d+)\s*(?:-|–|to)\s*(\d+)\s*mos?\b`)
	timeRangeRe   = regexp.MustCompile(`(?i)\b(\d{1,2}(?::\d{2})?\s*(?:a\.?m\.?|p\.?m\.?))\s*(?:-|–|to)\s*(\d{1,2}(?::\d{2})?\s*(?:a\.?m\.?|p\.?m\.?))`)
	monthNameRe   = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?`
	dateRe        = regexp.MustCompile(`(?i)\b(` + monthNameRe + `)\s+(\d{1,2})(?:,?\s*(\d{4}))?`)
	dateRangeRe   = regexp.MustCompile(`(?i)\b(` + monthNameRe + `\s+\d{1,2}(?:,?\s*\d{4})?)\s*(?:-|–|to)\s*(` + monthNameRe + `\s+\d{1,2}(?:,?\s*\d{4})?)`)
	regBeginsRe   = regexp.MustCompile(`(?i)registration\s+(?:begins|opens|starts)\s*:?\s*(` + monthNameRe + `\s+\d{1,2}(?:,?\s*\d{4})?)`)
	// Status chips render as their own innerText line; matching "full"
	// anywhere would misread names like "Full Day Camp".
	fullLineRe   = regexp.MustCompile(`(?im)^\s*(?:class\s+|course\s+)?(?:full|sold\s+out)\s*$`)
	signUpWordRe = regexp.MustCompile(`(?i)\b(sign\s*up|register(?:\s+now)?)\b`)
)

// weekdays maps every token the site has been seen using onto the canonical
// day name, scanned in Monday-first order.
var weekdays = []struct {
	re  *regexp.Regexp
	day string
}{
	{regexp.MustCompile(`(?i)\bmon(?:day)?s?\b`), "Monday"},
	{regexp.MustCompile(`(?i)\btue(?:s|sday)?s?\b`), "Tuesday"},
	{regexp.MustCompile(`(?i)\bwed(?:s|nesday)?s?\b`), "Wednesday"},
	{regexp.MustCompile(`(?i)\bthu(?:r|rs|rsday)?s?\b`), "Thursday"},
	{regexp.MustCompile(`(?i)\bfri(?:day)?s?\b`), "Friday"},
	{regexp.MustCompile(`(?i)\bsat(?:urday)?s?\b`), "Saturday"},
	{regexp.MustCompile(`(?i)\bsun(?:day)?s?\b`), "Sunday"},
}

// idParamNames are the query parameters the registration links carry the
// course id under, in the order they are tried.
var idParamNames = []string{"courseId", "course_id", "courseID", "id"}

// Parse maps one harvested entry to candidate fields, using the current
// time as the reference for yearless dates. The only error it returns is
// ErrNoExternalID; every other field is best-effort.
func Parse(raw model.RawEntry) (*model.Candidate, error) {
	return ParseAt(raw, time.Now())
}

// ParseAt is Parse with an explicit reference time. Listing dates often
// print no year ("Nov 20 - Jan 8"); the reference pins which year those
// resolve to, so extraction is a pure function of entry and reference.
func ParseAt(raw model.RawEntry, ref time.Time) (*model.Candidate, error) {
	text := strings.TrimSpace(raw.Text)
	c := &model.Candidate{
		Category:    raw.Category,
		Subcategory: raw.Subcategory,
		RawText:     text,
	}

	var doc *goquery.Document
	if raw.HTML != "" {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(raw.HTML))
	}

	c.RegistrationURL = registrationLink(doc)
	c.ExternalID = externalID(text, doc, c.RegistrationURL)
	if c.ExternalID == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoExternalID, firstLine(text))
	}

	c.Name = strings.TrimSpace(idTokenRe.ReplaceAllString(firstLine(text), ""))

	if m := dateRangeRe.FindStringSubmatch(text); m != nil {
		start, startHasYear := parseDate(m[1], ref)
		end, endHasYear := parseDate(m[2], ref)
		// "Jan 6 - Mar 10, 2025" only prints the year once; the start
		// borrows it, stepping back a year when the range crosses new year.
		if !startHasYear && endHasYear && !end.IsZero() && !start.IsZero() {
			start = time.Date(end.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
			if start.After(end) {
				start = start.AddDate(-1, 0, 0)
			}
		}
		// A range like "Nov 20 - Jan 8" with no years wraps into the next one.
		if !start.IsZero() && !end.IsZero() && end.Before(start) {
			end = end.AddDate(1, 0, 0)
		}
		c.DateStart, c.DateEnd = start, end
	}

	for _, wd := range weekdays {
		if wd.re.MatchString(text) {
			c.DaysOfWeek = append(c.DaysOfWeek, wd.day)
		}
	}

	if m := costRe.FindStringSubmatch(text); m != nil {
		c.Cost, _ = strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		c.TaxIncluded = strings.Contains(strings.ToLower(text), "tax incl")
	}

	if m := spotsOfRe.FindStringSubmatch(text); m != nil {
		avail, _ := strconv.Atoi(m[1])
		total, _ := strconv.Atoi(m[2])
		c.SpotsAvailable = &avail
		c.TotalSpots = &total
	} else if m := spotsRe.FindStringSubmatch(text); m != nil {
		avail, _ := strconv.Atoi(m[1])
		c.SpotsAvailable = &avail
	}

	if m := regBeginsRe.FindStringSubmatch(text); m != nil {
		if d, hasYear := parseDate(m[1], ref); !d.IsZero() {
			// An announced opening with no year is the upcoming one.
			if !hasYear && !c.DateStart.IsZero() && d.After(c.DateStart) {
				d = d.AddDate(-1, 0, 0)
			}
			c.RegistrationDate = d
		}
	}

	c.AgeMin, c.AgeMax = ageRange(text)
	c.Schedule = scheduleLine(text)
	c.RegistrationStatus = registrationStatus(text, c.RegistrationURL)
	return c, nil
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// scheduleLine picks the line carrying the time range, falling back to the
// one with a weekday mention.
func scheduleLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if timeRangeRe.MatchString(line) {
			return strings.TrimSpace(line)
		}
	}
	for _, line := range strings.Split(text, "\n") {
		for _, wd := range weekdays {
			if wd.re.MatchString(line) {
				return strings.TrimSpace(line)
			}
		}
	}
	return ""
}

// externalID tries, in order: a dedicated id element, a #NNNNNN token in the
// text, and the id-bearing query parameter on the registration link.
func externalID(text string, doc *goquery.Document, regURL string) string {
	if doc != nil {
		if v, ok := doc.Find("[data-course-id]").First().Attr("data-course-id"); ok && v != "" {
			return v
		}
		if v := strings.TrimSpace(doc.Find(".course-id, .courseId").First().Text()); v != "" {
			return strings.TrimPrefix(v, "#")
		}
	}
	if m := idTokenRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if regURL != "" {
		if u, err := url.Parse(regURL); err == nil {
			q := u.Query()
			for _, name := range idParamNames {
				if v := q.Get(name); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func registrationLink(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h, _ := s.Attr("href")
		lowText := strings.ToLower(s.Text())
		lowHref := strings.ToLower(h)
		if strings.Contains(lowText, "sign up") || strings.Contains(lowText, "register") ||
			strings.Contains(lowHref, "register") || strings.Contains(lowHref, "courseid") ||
			strings.Contains(lowHref, "bookme") {
			href = h
			return false
		}
		return true
	})
	return href
}

func registrationStatus(text, regURL string) model.RegistrationStatus {
	switch {
	case strings.Contains(strings.ToLower(text), "waitlist"):
		return model.StatusWaitlist
	case fullLineRe.MatchString(text):
		return model.StatusFull
	case signUpWordRe.MatchString(text):
		return model.StatusOpen
	case regURL != "":
		// A registration link with no contrary cue means it is bookable.
		return model.StatusOpen
	default:
		return model.StatusUnknown
	}
}

// ageRange handles "X-Y yrs", "X+ yrs" (open-ended max) and month forms
// like "6 mos - 3 yrs" and "18-36 mos", converting months to whole years.
// Missing bounds stay nil, meaning unbounded.
func ageRange(text string) (*int, *int) {
	if m := ageMonthsRe.FindStringSubmatch(text); m != nil {
		minMonths, _ := strconv.Atoi(m[1])
		maxVal, _ := strconv.Atoi(m[2])
		ageMin := minMonths / 12
		if strings.HasPrefix(strings.ToLower(m[3]), "mo") {
			maxVal = maxVal / 12
		}
		return &ageMin, &maxVal
	}
	if m := monthsRangeRe.FindStringSubmatch(text); m != nil {
		minMonths, _ := strconv.Atoi(m[1])
		maxMonths, _ := strconv.Atoi(m[2])
		ageMin := minMonths / 12
		ageMax := maxMonths / 12
		return &ageMin, &ageMax
	}
	if m := ageRangeRe.FindStringSubmatch(text); m != nil {
		ageMin, _ := strconv.Atoi(m[1])
		ageMax, _ := strconv.Atoi(m[2])
		return &ageMin, &ageMax
	}
	if m := agePlusRe.FindStringSubmatch(text); m != nil {
		ageMin, _ := strconv.Atoi(m[1])
		return &ageMin, nil
	}
	return nil, nil
}

// parseDate accepts "Jan 2", "Jan 2, 2006" and "January 2 2006", reporting
// whether the year was printed. A missing year defaults to the reference
// year; the caller fixes it up from range context.
func parseDate(s string, ref time.Time) (time.Time, bool) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	month := strings.TrimSuffix(m[1], ".")
	if len(month) > 3 {
		month = month[:3]
	}
	month = strings.ToUpper(month[:1]) + strings.ToLower(month[1:])
	day := m[2]
	year := m[3]
	hasYear := year != ""
	if !hasYear {
		year = strconv.Itoa(ref.Year())
	}
	t, err := time.Parse("Jan 2 2006", fmt.Sprintf("%s %s %s", month, day, year))
	if err != nil {
		return time.Time{}, false
	}
	return t, hasYear
}

// ParseTimeRange splits "10:00am - 10:45am" into normalized clock strings.
// Exported for the enricher, which sees the same format on session rows.
func ParseTimeRange(s string) (string, string, bool) {
	m := timeRangeRe.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return normalizeClock(m[1]), normalizeClock(m[2]), true
}

func normalizeClock(s string) string {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), ".", ""))
	s = strings.ReplaceAll(s, " ", "")
	if !strings.Contains(s, ":") {
		// "3pm" -> "3:00pm"
		s = strings.Replace(s, "am", ":00am", 1)
		s = strings.Replace(s, "pm", ":00pm", 1)
	}
	return s
}
