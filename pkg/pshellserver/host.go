package pshellserver

import "strings"

// resolveBindHost maps the spec's symbolic host values (spec §4.E) to a
// concrete local bind address, and reports whether the endpoint should
// have the broadcast socket option enabled. Binding literally to a
// broadcast address (255.255.255.255 or an x.y.z.255 subnet broadcast)
// isn't portable, so those forms bind INADDR_ANY with SO_BROADCAST set,
// which receives broadcast datagrams the same way on Linux.
func resolveBindHost(host string) (addr string, broadcast bool) {
	switch host {
	case "", AnyHost:
		return "0.0.0.0", false
	case LocalHost:
		return "127.0.0.1", false
	case AnyBcast:
		return "0.0.0.0", true
	default:
		if strings.HasSuffix(host, ".255") {
			return "0.0.0.0", true
		}
		return host, false
	}
}
