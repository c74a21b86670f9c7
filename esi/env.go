package esi

import (
	"net"
	"net/http"
	"strings"

	"github.com/fastedge/esi/esiexpr"
)

// requestEnv resolves ESI expression variables against a single HTTP request, implementing
// [esiexpr.Env].
type requestEnv struct {
	req *http.Request
}

// NewRequestEnv returns an [esiexpr.Env] that resolves the recognized ESI variables
// (HTTP_ACCEPT_LANGUAGE, HTTP_COOKIE, HTTP_HOST, HTTP_REFERER, HTTP_USER_AGENT, QUERY_STRING,
// REMOTE_ADDR, REQUEST_METHOD, REQUEST_PATH) against req.
func NewRequestEnv(req *http.Request) esiexpr.Env {
	return &requestEnv{req: req}
}

func (e *requestEnv) LookupVariable(name string, key *string) (esiexpr.Value, bool) {
	switch name {
	case "HTTP_ACCEPT_LANGUAGE":
		return e.header("Accept-Language")
	case "HTTP_COOKIE":
		return e.cookie(key)
	case "HTTP_HOST":
		return e.header("Host")
	case "HTTP_REFERER":
		return e.header("Referer")
	case "HTTP_USER_AGENT":
		return e.userAgent(key)
	case "QUERY_STRING":
		return e.queryString(key)
	case "REMOTE_ADDR":
		host, _, err := net.SplitHostPort(e.req.RemoteAddr)
		if err != nil {
			return esiexpr.Str(e.req.RemoteAddr), true
		}
		return esiexpr.Str(host), true
	case "REQUEST_METHOD":
		return esiexpr.Str(e.req.Method), true
	case "REQUEST_PATH":
		return esiexpr.Str(e.req.URL.Path), true
	default:
		return esiexpr.Value{}, false
	}
}

func (e *requestEnv) header(name string) (esiexpr.Value, bool) {
	if name == "Host" {
		host := e.req.Host
		if host == "" {
			host = e.req.URL.Host
		}
		return esiexpr.Str(host), true
	}
	v := e.req.Header.Get(name)
	return esiexpr.Str(v), true
}

func (e *requestEnv) cookie(key *string) (esiexpr.Value, bool) {
	if key == nil {
		header := e.req.Header.Get("Cookie")
		return esiexpr.Str(header), true
	}
	c, err := e.req.Cookie(*key)
	if err != nil {
		return esiexpr.Str(""), true
	}
	return esiexpr.Str(c.Value), true
}

func (e *requestEnv) queryString(key *string) (esiexpr.Value, bool) {
	if key == nil {
		raw := e.req.URL.RawQuery
		return esiexpr.Str(raw), true
	}
	q := e.req.URL.Query()
	if !q.Has(*key) {
		return esiexpr.Str(""), true
	}
	return esiexpr.Str(q.Get(*key)), true
}

// userAgent resolves HTTP_USER_AGENT and its "os"/"browser"/"version" sub-keys using a minimal
// heuristic classifier; there is no dependency in the corpus for full user agent parsing, so this
// deliberately covers only the handful of common cases ESI templates query.
func (e *requestEnv) userAgent(key *string) (esiexpr.Value, bool) {
	ua := e.req.Header.Get("User-Agent")
	if key == nil {
		return esiexpr.Str(ua), true
	}
	if ua == "" {
		return esiexpr.Str(""), true
	}

	switch *key {
	case "browser":
		return esiexpr.Str(classifyBrowser(ua)), true
	case "os":
		return esiexpr.Str(classifyOS(ua)), true
	case "version":
		return esiexpr.Str(classifyVersion(ua)), true
	default:
		return esiexpr.Str(""), true
	}
}

func classifyBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "Edg/"):
		return "EDGE"
	case strings.Contains(ua, "OPR/"):
		return "OPERA"
	case strings.Contains(ua, "Chrome/"):
		return "CHROME"
	case strings.Contains(ua, "Firefox/"):
		return "FIREFOX"
	case strings.Contains(ua, "Safari/") && strings.Contains(ua, "Version/"):
		return "SAFARI"
	case strings.Contains(ua, "MSIE") || strings.Contains(ua, "Trident/"):
		return "MSIE"
	default:
		return "OTHER"
	}
}

func classifyOS(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "WIN"
	case strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad"):
		return "IOS"
	case strings.Contains(ua, "Mac OS X") || strings.Contains(ua, "Macintosh"):
		return "MAC"
	case strings.Contains(ua, "Android"):
		return "ANDROID"
	case strings.Contains(ua, "Linux"):
		return "UNIX"
	default:
		return "OTHER"
	}
}

func classifyVersion(ua string) string {
	markers := []string{"Edg/", "OPR/", "Chrome/", "Firefox/", "Version/", "MSIE "}
	for _, marker := range markers {
		idx := strings.Index(ua, marker)
		if idx == -1 {
			continue
		}
		rest := ua[idx+len(marker):]
		end := strings.IndexAny(rest, " ;)")
		if end == -1 {
			end = len(rest)
		}
		return rest[:end]
	}
	return ""
}
