package caldav

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
)

// Fixed PROPFIND bodies for the three discovery steps.
const (
	principalBody = `<?xml version="1.0" encoding="utf-8" ?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:current-user-principal/>
  </d:prop>
</d:propfind>`

	homeSetBody = `<?xml version="1.0" encoding="utf-8" ?>
<d:propfind xmlns:d="DAV:" xmlns:cal="urn:ietf:params:xml:ns:caldav">
  <d:prop>
    <cal:calendar-home-set/>
  </d:prop>
</d:propfind>`

	calendarsBody = `<?xml version="1.0" encoding="utf-8" ?>
<d:propfind xmlns:d="DAV:" xmlns:cal="urn:ietf:params:xml:ns:caldav">
  <d:prop>
    <d:resourcetype/>
    <d:displayname/>
    <cal:supported-calendar-component-set/>
  </d:prop>
</d:propfind>`
)

// DiscoveryError reports which discovery step failed and, for HTTP
// failures, the status the server answered with.
type DiscoveryError struct {
	Step   string
	Status int
	Msg    string
}

func (e *DiscoveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("caldav discovery: %s: %s (status %d)", e.Step, e.Msg, e.Status)
	}
	return fmt.Sprintf("caldav discovery: %s: %s", e.Step, e.Msg)
}

// Discovery is the outcome of a completed handshake.
type Discovery struct {
	PrincipalURL string
	CalendarHome string
	Calendars    []models.DiscoveredCalendar
}

// Discover runs the three-step handshake: the server root is asked for the
// current-user-principal, the principal for the calendar-home-set, then the
// home is listed at depth 1 for calendar collections. Each step is terminal
// on failure; there are no retries.
func (s *Service) Discover(ctx context.Context, link models.AppleCalendarLink) (*Discovery, error) {
	client := s.httpClient(link)

	principalURL, err := s.findPrincipal(ctx, client)
	if err != nil {
		return nil, err
	}
	homeURL, err := s.findCalendarHome(ctx, client, principalURL)
	if err != nil {
		return nil, err
	}
	calendars, err := s.listCalendars(ctx, client, homeURL)
	if err != nil {
		return nil, err
	}

	s.logger.Info("caldav discovery finished", "home", homeURL, "calendars", len(calendars))
	return &Discovery{PrincipalURL: principalURL, CalendarHome: homeURL, Calendars: calendars}, nil
}

// Verify reports whether the credentials work. Valid credentials are
// exactly the ones discovery succeeds with, so it simply runs Discover.
func (s *Service) Verify(ctx context.Context, link models.AppleCalendarLink) error {
	_, err := s.Discover(ctx, link)
	return err
}

func (s *Service) findPrincipal(ctx context.Context, client *http.Client) (string, error) {
	doc, err := s.propfind(ctx, client, s.serverURL, "0", principalBody, "principal")
	if err != nil {
		return "", err
	}
	href := textOf(firstElement(doc.Root(), "current-user-principal"), "href")
	if href == "" {
		return "", &DiscoveryError{Step: "principal", Msg: "no current-user-principal in response"}
	}
	return resolveHref(s.serverURL, href), nil
}

func (s *Service) findCalendarHome(ctx context.Context, client *http.Client, principalURL string) (string, error) {
	doc, err := s.propfind(ctx, client, principalURL, "0", homeSetBody, "calendar-home")
	if err != nil {
		return "", err
	}
	href := textOf(firstElement(doc.Root(), "calendar-home-set"), "href")
	if href == "" {
		return "", &DiscoveryError{Step: "calendar-home", Msg: "no calendar-home-set in response"}
	}
	return resolveHref(principalURL, href), nil
}

func (s *Service) listCalendars(ctx context.Context, client *http.Client, homeURL string) ([]models.DiscoveredCalendar, error) {
	doc, err := s.propfind(ctx, client, homeURL, "1", calendarsBody, "calendars")
	if err != nil {
		return nil, err
	}

	var calendars []models.DiscoveredCalendar
	for _, resp := range childElements(doc.Root(), "response") {
		href := textOf(resp, "href")
		if href == "" || !isCalendarResource(resp) {
			continue
		}
		name := textOf(resp, "displayname")
		if name == "" {
			name = "Calendar"
		}
		calendars = append(calendars, models.DiscoveredCalendar{
			Href:        resolveHref(homeURL, href),
			DisplayName: name,
		})
	}
	return calendars, nil
}

// propfind issues a PROPFIND with the given depth and fixed body, and
// parses the expected 207 Multi-Status payload into an XML tree.
func (s *Service) propfind(ctx context.Context, client *http.Client, target, depth, body, step string) (*etree.Document, error) {
	req, err := http.NewRequestWithContext(ctx, "PROPFIND", target, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("caldav: build %s request: %w", step, err)
	}
	req.Header.Set("Depth", depth)
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &DiscoveryError{Step: step, Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus {
		return nil, &DiscoveryError{Step: step, Status: resp.StatusCode, Msg: "expected 207 Multi-Status"}
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		return nil, &DiscoveryError{Step: step, Msg: "malformed multistatus body"}
	}
	if doc.Root() == nil {
		return nil, &DiscoveryError{Step: step, Msg: "empty multistatus body"}
	}
	return doc, nil
}

// isCalendarResource reports whether a multistatus response's resourcetype
// carries the caldav calendar marker. The home collection itself and
// iCloud's scheduling inbox/outbox do not.
func isCalendarResource(resp *etree.Element) bool {
	rt := firstElement(resp, "resourcetype")
	if rt == nil {
		return false
	}
	return firstElement(rt, "calendar") != nil
}

// firstElement finds the first descendant whose local name matches,
// whatever namespace prefix the server chose.
func firstElement(el *etree.Element, local string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, child := range el.ChildElements() {
		if strings.EqualFold(child.Tag, local) {
			return child
		}
		if found := firstElement(child, local); found != nil {
			return found
		}
	}
	return nil
}

// childElements collects the direct children whose local name matches.
func childElements(el *etree.Element, local string) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if strings.EqualFold(child.Tag, local) {
			out = append(out, child)
		}
	}
	return out
}

// textOf returns the trimmed text of parent's first descendant named local,
// or "" when absent.
func textOf(parent *etree.Element, local string) string {
	el := firstElement(parent, local)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// resolveHref makes an href absolute against the URL of the request that
// returned it. Servers usually answer with host-relative paths; iCloud
// answers with absolute cross-host URLs for the calendar home, and those
// pass through untouched.
func resolveHref(base, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	u, err := url.Parse(base)
	if err != nil {
		return href
	}
	return u.Scheme + "://" + u.Host + href
}
