package photo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"cardapi/internal/storage"
)

// Source opens the raw bytes behind a photo reference.
type Source interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// ErrBlockedAddress is returned when a photo URL resolves to a loopback,
// private, link-local or otherwise non-public address.
var ErrBlockedAddress = errors.New("photo host resolves to a blocked address")

// ErrHostNotAllowed is returned when a photo URL names a host outside
// HTTPOptions.AllowedHosts.
var ErrHostNotAllowed = errors.New("photo host is not allowed")

// HTTPOptions restrict what an HTTPSource may fetch.
type HTTPOptions struct {
	// AllowPrivate permits loopback, private and link-local targets.
	AllowPrivate bool
	// AllowedHosts limits fetches to these host names when non-empty.
	AllowedHosts []string
	// MaxRedirects is the number of redirects followed; 0 follows none.
	MaxRedirects int
}

// HTTPSource fetches http(s) photo references. Requests carry no cookies or
// credentials, matching an anonymous cross-origin image load.
type HTTPSource struct {
	Client  *http.Client
	allowed map[string]bool
}

// NewHTTPSource returns an HTTPSource whose client is traced with otelhttp.
// Unless opt.AllowPrivate is set, every connection, redirects included, is
// checked after DNS resolution and refused for non-public addresses.
// The client has no timeout of its own; the caller's context bounds each fetch.
func NewHTTPSource(opt HTTPOptions) *HTTPSource {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	if !opt.AllowPrivate {
		dialer.Control = refusePrivate
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	s := &HTTPSource{}
	if len(opt.AllowedHosts) > 0 {
		s.allowed = make(map[string]bool, len(opt.AllowedHosts))
		for _, h := range opt.AllowedHosts {
			s.allowed[strings.ToLower(strings.TrimSpace(h))] = true
		}
	}
	s.Client = &http.Client{
		Transport: otelhttp.NewTransport(transport),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > opt.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", opt.MaxRedirects)
			}
			return s.checkHost(req.URL)
		},
	}
	return s
}

func (s *HTTPSource) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if err := s.checkHost(req.URL); err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/jpeg, image/png")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *HTTPSource) checkHost(u *url.URL) error {
	if s.allowed == nil || s.allowed[strings.ToLower(u.Hostname())] {
		return nil
	}
	return fmt.Errorf("%s: %w", u.Hostname(), ErrHostNotAllowed)
}

// refusePrivate runs on the resolved address of every dial.
func refusePrivate(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%s: %w", host, ErrBlockedAddress)
	}
	if !publicAddr(addr.Unmap()) {
		return fmt.Errorf("%s: %w", host, ErrBlockedAddress)
	}
	return nil
}

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func publicAddr(a netip.Addr) bool {
	return a.IsGlobalUnicast() &&
		!a.IsPrivate() &&
		!a.IsLoopback() &&
		!a.IsLinkLocalUnicast() &&
		!sharedAddressSpace.Contains(a)
}

// StorageSource reads "s3://<key>" references from object storage.
type StorageSource struct {
	Store storage.Storage
}

func (s *StorageSource) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	key, ok := storage.KeyFromRef(ref)
	if !ok {
		return nil, fmt.Errorf("not an object reference: %q", ref)
	}
	rc, _, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return rc, nil
}

// FileSource reads local paths, relative ones resolved against Root.
type FileSource struct {
	Root string
}

func (s *FileSource) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimPrefix(ref, "file://")
	if !filepath.IsAbs(path) && s.Root != "" {
		path = filepath.Join(s.Root, path)
	}
	return os.Open(path)
}

// Resolver dispatches a reference to the source that understands it:
// http(s) URLs to HTTP, "s3://" keys to Storage, anything else to File.
// A nil source makes references of that kind fail.
type Resolver struct {
	HTTP    Source
	Storage Source
	File    Source
}

func (r *Resolver) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	var src Source
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		src = r.HTTP
	case strings.HasPrefix(ref, storage.RefScheme):
		src = r.Storage
	default:
		src = r.File
	}
	if src == nil {
		return nil, fmt.Errorf("no source configured for %q", ref)
	}
	return src.Open(ctx, ref)
}
