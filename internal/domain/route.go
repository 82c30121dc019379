package domain

// Route is one managed hostname: the proxy forwards traffic for Host to
// Upstream, and TLSEnabled decides whether the certificate lifecycle applies.
type Route struct {
	Host       string `json:"host"`
	Upstream   string `json:"upstream"`
	TLSEnabled bool   `json:"tls"`
}

// FragmentName is the file name of the proxy configuration fragment for the route.
func (r Route) FragmentName() string {
	return r.Host + ".conf"
}
