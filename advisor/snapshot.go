package advisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/adeilh/digitally/httpx"
)

// ErrBlockedAddress is returned when a snapshot would connect to a private,
// loopback or link-local address.
var ErrBlockedAddress = errors.New("advisor: refusing to fetch a non-public address")

const (
	snapshotTimeout  = 8 * time.Second
	snapshotMaxBytes = 2 << 20
	snapshotHeadings = 5
	snapshotUA       = "Mozilla/5.0 (compatible; DigitallyRoastBot/1.0)"
)

// Snapshot is what a visitor sees first on a page.
type Snapshot struct {
	Title       string
	Description string
	Headings    []string
	Links       int
	Images      int
	ImagesNoAlt int
}

// String renders the snapshot as prompt lines. An empty snapshot renders "".
func (s Snapshot) String() string {
	if s.Title == "" && s.Description == "" && len(s.Headings) == 0 {
		return ""
	}
	var b strings.Builder
	if s.Title != "" {
		fmt.Fprintf(&b, "- Title: %s\n", s.Title)
	}
	if s.Description != "" {
		fmt.Fprintf(&b, "- Meta description: %s\n", s.Description)
	}
	for _, h := range s.Headings {
		fmt.Fprintf(&b, "- Heading: %s\n", h)
	}
	fmt.Fprintf(&b, "- Links: %d, images: %d (%d without alt text)", s.Links, s.Images, s.ImagesNoAlt)
	return b.String()
}

// Snapshotter fetches a page summary for a roast prompt.
type Snapshotter interface {
	Snapshot(ctx context.Context, url string) (Snapshot, error)
}

// PageSnapshotter fetches pages over HTTP and reads them with goquery.
type PageSnapshotter struct {
	client *httpx.Client
}

// NewPageSnapshotter returns a snapshotter that only dials public addresses
// unless allowPrivate is set.
func NewPageSnapshotter(allowPrivate bool) *PageSnapshotter {
	dialer := &net.Dialer{Timeout: snapshotTimeout}
	if !allowPrivate {
		dialer.Control = publicOnly
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   snapshotTimeout,
		ResponseHeaderTimeout: snapshotTimeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
	}
	client := httpx.NewClient(
		httpx.WithClientTimeout(snapshotTimeout),
		httpx.WithTransport(transport),
		httpx.WithHeaders(map[string]string{
			"User-Agent": snapshotUA,
			"Accept":     "text/html,application/xhtml+xml",
		}),
	)
	return &PageSnapshotter{client: client}
}

func (p *PageSnapshotter) Snapshot(ctx context.Context, url string) (Snapshot, error) {
	resp, err := p.client.Get(ctx, url, nil, httpx.WithRawBody())
	if resp != nil && resp.RawBody() != nil {
		defer resp.RawBody().Close()
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("advisor: fetch %s: %w", url, err)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return Snapshot{}, fmt.Errorf("advisor: %s is %s, not html", url, ct)
	}
	return ReadSnapshot(io.LimitReader(resp.RawBody(), snapshotMaxBytes))
}

// ReadSnapshot extracts a Snapshot from an HTML document.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Snapshot{}, fmt.Errorf("advisor: parse html: %w", err)
	}
	var s Snapshot
	s.Title = clean(doc.Find("title").First().Text())
	for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && clean(v) != "" {
			s.Description = clean(v)
			break
		}
	}
	doc.Find("h1, h2").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if t := clean(sel.Text()); t != "" {
			s.Headings = append(s.Headings, t)
		}
		return len(s.Headings) < snapshotHeadings
	})
	s.Links = doc.Find("a[href]").Length()
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		s.Images++
		if alt, ok := img.Attr("alt"); !ok || strings.TrimSpace(alt) == "" {
			s.ImagesNoAlt++
		}
	})
	return s, nil
}

func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 200 {
		s = string(r[:200])
	}
	return s
}

func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return ErrBlockedAddress
	}
	return nil
}
