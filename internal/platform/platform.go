package platform

import (
	"net/url"
	"regexp"
	"strings"
)

type Platform string

const (
	YouTube   Platform = "youtube"
	Instagram Platform = "instagram"
)

func (p Platform) String() string {
	return string(p)
}

// DisplayName is the name shown in chat replies.
func (p Platform) DisplayName() string {
	switch p {
	case YouTube:
		return "YouTube"
	case Instagram:
		return "Instagram"
	default:
		return string(p)
	}
}

var (
	urlPattern       = regexp.MustCompile(`https?://[^\s<>"]+`)
	instagramPath    = regexp.MustCompile(`^/(?:[A-Za-z0-9_.]+/)?(?:p|reel|reels|tv)/([A-Za-z0-9_-]+)`)
	instagrAmPath    = regexp.MustCompile(`^/p/([A-Za-z0-9_-]+)`)
	youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractURL returns the first http(s) URL in a message, or "".
func ExtractURL(text string) string {
	found := urlPattern.FindString(text)
	return strings.TrimRight(found, ".,;:!?)]}'")
}

func hostOf(rawURL string) (*url.URL, string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", false
	}
	return u, strings.TrimPrefix(strings.ToLower(u.Hostname()), "www."), true
}

func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Detect classifies a URL. Unsupported hosts report false.
func Detect(rawURL string) (Platform, bool) {
	_, host, ok := hostOf(rawURL)
	if !ok {
		return "", false
	}
	switch {
	case hostMatches(host, "instagram.com"), hostMatches(host, "instagr.am"):
		return Instagram, true
	case hostMatches(host, "youtube.com"), host == "youtu.be", hostMatches(host, "youtube-nocookie.com"):
		return YouTube, true
	}
	return "", false
}

// InstagramShortcode extracts the post code from /p/, /reel/, /reels/ and /tv/ links.
func InstagramShortcode(rawURL string) (string, bool) {
	u, host, ok := hostOf(rawURL)
	if !ok {
		return "", false
	}
	var m []string
	switch {
	case hostMatches(host, "instagram.com"):
		m = instagramPath.FindStringSubmatch(u.Path)
	case hostMatches(host, "instagr.am"):
		m = instagrAmPath.FindStringSubmatch(u.Path)
	}
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// YouTubeVideoID extracts the 11 character video ID from the common link shapes.
func YouTubeVideoID(rawURL string) (string, bool) {
	u, host, ok := hostOf(rawURL)
	if !ok {
		return "", false
	}

	var candidate string
	switch {
	case host == "youtu.be":
		candidate = strings.Trim(u.Path, "/")
	case hostMatches(host, "youtube.com"), hostMatches(host, "youtube-nocookie.com"):
		if v := u.Query().Get("v"); v != "" {
			candidate = v
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 {
			switch parts[0] {
			case "shorts", "embed", "live", "v":
				candidate = parts[1]
			}
		}
	}

	if !youtubeIDPattern.MatchString(candidate) {
		return "", false
	}
	return candidate, true
}
