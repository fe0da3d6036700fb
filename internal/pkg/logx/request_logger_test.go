package logx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_anonymizeIP(t *testing.T) {
	tcases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "ipv4 with port", input: "203.0.113.77:51234", want: "203.0.113.0"},
		{name: "ipv4 without port", input: "203.0.113.77", want: "203.0.113.0"},
		{name: "loopback", input: "127.0.0.1:8080", want: "127.0.0.1"},
		{name: "ipv6", input: "[2001:db8:1:2:3:4:5:6]:443", want: "2001:db8:1:2::"},
		{name: "garbage", input: "not-an-ip", want: "unknown_ip"},
		{name: "empty", input: "", want: "unknown_ip"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, anonymizeIP(tc.input))
		})
	}
}
