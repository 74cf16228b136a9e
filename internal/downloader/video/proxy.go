package ytdlp

import (
	"fmt"
	"net/url"
	"strings"
)

// shouldUseProxy applies the proxy to every URL when no domain list is set.
func shouldUseProxy(rawURL, proxy, proxyDomains string) (bool, error) {
	if proxy == "" {
		return false, nil
	}

	if strings.TrimSpace(proxyDomains) == "" {
		return true, nil
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("failed to parse URL: %w", err)
	}

	hostname := strings.ToLower(parsedURL.Hostname())
	for _, domain := range strings.Split(proxyDomains, ",") {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if hostname == domain || strings.HasSuffix(hostname, "."+domain) {
			return true, nil
		}
	}

	return false, nil
}
