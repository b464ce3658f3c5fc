package middleware

import (
	"net"
	"net/http"
)

// ClientIP extracts the client's source address from the request. Only the
// transport-level RemoteAddr is trusted; forwarding headers are spoofable
// and the gateway sits at the edge.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
