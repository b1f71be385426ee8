package captcha

import (
	"net"
	"strings"
)

type ipRuleKind int

const (
	ruleExact ipRuleKind = iota
	ruleCIDR
	ruleWildcard
)

type ipRule struct {
	kind    ipRuleKind
	raw     string
	ip      net.IP
	network *net.IPNet
}

func (r ipRule) match(ip net.IP, raw string) bool {
	switch r.kind {
	case ruleCIDR:
		return r.network.Contains(ip)
	case ruleWildcard:
		return matchWildcard(raw, r.raw)
	default:
		return r.ip.Equal(ip)
	}
}

// IPPolicy decides which client IPs bypass the challenge. Entries are exact
// addresses, CIDR blocks or IPv4 wildcards such as 10.0.*.*; a leading "!"
// turns an entry into a deny rule, and deny rules win.
type IPPolicy struct {
	allow []ipRule
	deny  []ipRule
}

// NewIPPolicy parses entries, ignoring blanks and anything unparsable.
func NewIPPolicy(entries []string) *IPPolicy {
	p := &IPPolicy{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		deny := strings.HasPrefix(entry, "!")
		if deny {
			entry = strings.TrimSpace(entry[1:])
		}
		rule, ok := parseIPRule(entry)
		if !ok {
			continue
		}
		if deny {
			p.deny = append(p.deny, rule)
		} else {
			p.allow = append(p.allow, rule)
		}
	}
	return p
}

func parseIPRule(entry string) (ipRule, bool) {
	switch {
	case entry == "":
		return ipRule{}, false
	case strings.Contains(entry, "/"):
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return ipRule{}, false
		}
		return ipRule{kind: ruleCIDR, raw: entry, network: network}, true
	case strings.Contains(entry, "*"):
		if len(strings.Split(entry, ".")) != 4 {
			return ipRule{}, false
		}
		return ipRule{kind: ruleWildcard, raw: entry}, true
	default:
		ip := net.ParseIP(entry)
		if ip == nil {
			return ipRule{}, false
		}
		return ipRule{kind: ruleExact, raw: entry, ip: ip}, true
	}
}

// Empty reports whether the policy has no allow rules, i.e. never skips.
func (p *IPPolicy) Empty() bool {
	return p == nil || len(p.allow) == 0
}

// Skip reports whether clientIP should bypass the challenge.
func (p *IPPolicy) Skip(clientIP string) bool {
	return p.Matches(clientIP)
}

// Matches reports whether addr hits an allow rule and no deny rule. addr may
// carry a port or brackets.
func (p *IPPolicy) Matches(addr string) bool {
	if p.Empty() {
		return false
	}
	raw := normalizeIP(addr)
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	for _, rule := range p.deny {
		if rule.match(ip, raw) {
			return false
		}
	}
	for _, rule := range p.allow {
		if rule.match(ip, raw) {
			return true
		}
	}
	return false
}

// normalizeIP strips a port, brackets and an IPv6 zone.
func normalizeIP(s string) string {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if i := strings.Index(s, "%"); i != -1 {
		s = s[:i]
	}
	return s
}

func matchWildcard(ip, wildcard string) bool {
	ipOctets := strings.Split(ip, ".")
	wildcardOctets := strings.Split(wildcard, ".")
	if len(ipOctets) != 4 || len(wildcardOctets) != 4 {
		return false
	}
	for i := range 4 {
		if wildcardOctets[i] == "*" {
			continue
		}
		if ipOctets[i] != wildcardOctets[i] {
			return false
		}
	}
	return true
}
