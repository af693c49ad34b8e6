package imagefetch

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// RestrictedDomains are registrable domains whose images require page-level
// authentication to fetch (content-delivery domains of major social
// platforms). Matched against the source host's eTLD+1.
var RestrictedDomains = []string{
	"fbcdn.net",
	"instagram.com",
	"cdninstagram.com",
	"twimg.com",
}

// RestrictedHosts are exact hosts (and their subdomains) that are
// restricted even though the rest of their registrable domain is not.
var RestrictedHosts = []string{
	"media.licdn.com",
}

// restrictedHostPrefix catches Facebook's regional scontent-* CDN hosts.
const restrictedHostPrefix = "scontent"

// Classifier decides whether an image source is openly fetchable. This is a
// static list classification, not a live probe.
type Classifier struct {
	domains []string
	hosts   []string
}

// NewClassifier builds a Classifier from the default lists plus any extra
// restricted hosts from configuration.
func NewClassifier(extraHosts ...string) *Classifier {
	return &Classifier{
		domains: RestrictedDomains,
		hosts:   append(append([]string{}, RestrictedHosts...), extraHosts...),
	}
}

// Classify returns the access class of src. In-memory encoded image data
// (data URIs) and unparseable sources are open; only recognised restricted
// hosts are not.
func (c *Classifier) Classify(src string) Access {
	if strings.HasPrefix(src, "data:") {
		return AccessOpen
	}

	u, err := url.Parse(src)
	if err != nil || u.Hostname() == "" {
		return AccessOpen
	}
	host := strings.ToLower(u.Hostname())

	if strings.HasPrefix(host, restrictedHostPrefix) {
		return AccessRestricted
	}
	for _, h := range c.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return AccessRestricted
		}
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		etld1 = host
	}
	for _, d := range c.domains {
		if etld1 == d {
			return AccessRestricted
		}
	}
	return AccessOpen
}
