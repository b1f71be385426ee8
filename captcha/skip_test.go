package captcha

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPPolicy(t *testing.T) {
	policy := NewIPPolicy([]string{
		"127.0.0.1",
		" 192.168.1.0/24 ",
		"10.0.*.*",
		"!10.0.5.5",
		"2001:db8::/32",
		"not-an-ip",
		"",
	})

	tests := []struct {
		name string
		ip   string
		want bool
	}{
		{"exact", "127.0.0.1", true},
		{"exact with port", "127.0.0.1:54321", true},
		{"cidr", "192.168.1.77", true},
		{"outside cidr", "192.168.2.1", false},
		{"wildcard", "10.0.9.200", true},
		{"deny wins", "10.0.5.5", false},
		{"ipv6 cidr", "2001:db8::1", true},
		{"bracketed ipv6", "[2001:db8::1]:443", true},
		{"unlisted", "8.8.8.8", false},
		{"garbage", "nope", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Skip(tt.ip))
		})
	}
}

func TestIPPolicyEmpty(t *testing.T) {
	assert.True(t, NewIPPolicy(nil).Empty())
	assert.True(t, NewIPPolicy([]string{"!1.2.3.4"}).Empty())
	assert.False(t, NewIPPolicy(nil).Skip("127.0.0.1"))

	var nilPolicy *IPPolicy
	assert.False(t, nilPolicy.Skip("127.0.0.1"))
}

func TestMatchWildcard(t *testing.T) {
	assert.True(t, matchWildcard("172.16.4.1", "172.*.*.1"))
	assert.False(t, matchWildcard("172.16.4.2", "172.*.*.1"))
	assert.False(t, matchWildcard("::1", "*.*.*.*"))
}

func TestIPPolicyMatchesAddrWithPort(t *testing.T) {
	p := NewIPPolicy([]string{"172.16.0.0/12", "::1"})

	assert.True(t, p.Matches("172.16.0.1:8080"))
	assert.True(t, p.Matches("[::1]:443"))
	assert.False(t, p.Matches("203.0.113.9:5555"))
	assert.False(t, (*IPPolicy)(nil).Matches("172.16.0.1"))
}
