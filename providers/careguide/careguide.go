// Package careguide downloads plant care-guide pages and converts them to
// markdown so they can be handed to the model as reference text
// (see prompt.WithReference).
package careguide

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/leofalp/plantcare/internal/utils"
)

const (
	// DefaultTimeout bounds the whole download.
	DefaultTimeout = 20 * time.Second
	// MaxBodySize is the largest page accepted (5MB).
	MaxBodySize = 5 * 1024 * 1024
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "plantcare-careguide/1.0"
	maxRedirects     = 10
)

var (
	ErrEmptyURL = errors.New("careguide: url is required")
	ErrTooLarge = fmt.Errorf("careguide: page exceeds %d bytes", MaxBodySize)
	// ErrBlockedAddress is returned when the page (or a redirect) resolves to
	// a loopback, private, link-local or unspecified address.
	ErrBlockedAddress = errors.New("careguide: address is not publicly routable")
)

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Guide is a fetched care-guide page.
type Guide struct {
	URL      string `json:"url"` // final URL after redirects
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// Fetcher downloads care guides.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	allowPrivate bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		f.userAgent = userAgent
	}
}

// WithPrivateNetworks lets the default client dial loopback and private
// addresses. Only for local development and tests.
func WithPrivateNetworks() Option {
	return func(f *Fetcher) {
		f.allowPrivate = true
	}
}

// NewFetcher returns a Fetcher with a client bounded by timeout. A
// non-positive timeout uses DefaultTimeout. The default client refuses to
// connect to addresses that are not publicly routable; the check runs on the
// resolved address of every connection, redirects included.
func NewFetcher(timeout time.Duration, opts ...Option) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	f := &Fetcher{userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(f)
	}
	if f.client != nil {
		return f
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if !f.allowPrivate {
		dialer.Control = refusePrivate
	}
	f.client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   4,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (>%d)", maxRedirects)
			}
			return nil
		},
	}
	return f
}

// refusePrivate is a net.Dialer Control hook. address is the resolved
// ip:port about to be dialed.
func refusePrivate(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() ||
		sharedAddressSpace.Contains(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ip)
	}
	return nil
}

// Fetch downloads the page at rawURL and converts it to markdown. URLs
// without a scheme get https://.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Guide, error) {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return Guide{}, ErrEmptyURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Guide{}, fmt.Errorf("careguide: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedAddress) {
			return Guide{}, err
		}
		return Guide{}, fmt.Errorf("%w: %w", utils.ErrTransport, err)
	}
	defer utils.CloseWithLog(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Guide{}, &utils.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return Guide{}, fmt.Errorf("%w: read body: %w", utils.ErrTransport, err)
	}
	if len(page) > MaxBodySize {
		return Guide{}, ErrTooLarge
	}

	markdown, err := htmltomarkdown.ConvertString(string(page))
	if err != nil {
		return Guide{}, fmt.Errorf("%w: convert html: %w", utils.ErrDecode, err)
	}

	return Guide{
		URL:      resp.Request.URL.String(),
		Title:    pageTitle(string(page)),
		Markdown: strings.TrimSpace(markdown),
	}, nil
}

// pageTitle returns the text of the first <title>, or "" when there is none.
func pageTitle(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}

	var walk func(*html.Node) string
	walk = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" {
			var text strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					text.WriteString(c.Data)
				}
			}
			return strings.Join(strings.Fields(text.String()), " ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title := walk(c); title != "" {
				return title
			}
		}
		return ""
	}
	return walk(doc)
}
