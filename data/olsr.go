package data

// MeshHost is one entry of the OLSR hosts table.
type MeshHost struct {
	IP       string
	Hostname string
	Comment  string
}

// Address returns the name discovery should use to reach the host.
func (h *MeshHost) Address() string {
	if h.Hostname != "" {
		return FQDN(h.Hostname)
	}
	return h.IP
}
