package httpx

import (
	"net"
	"strconv"
)

// mergeAddresses combines the host part of the address with the port the
// listener actually got, so a rolled or random port shows up in the served
// address. For example, huddle.io:8080 over a listener bound to
// 0.0.0.0:8888 becomes huddle.io:8888.
func mergeAddresses(address string, l Listener) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	if host == "" {
		host = "localhost"
	}

	if port := l.GetPort(); port > 0 && port != 80 && port != 443 {
		host += ":" + strconv.Itoa(port)
	}
	return host
}
