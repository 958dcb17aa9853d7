// Package olsr reads mesh host tables, used as additional discovery seeds.
package olsr

import (
	"bufio"
	"bytes"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/arednch/nodemon/data"
)

const (
	commentPfx = "#"

	// DefaultHostsFile is where OLSR writes its host table on a node.
	DefaultHostsFile = "/var/run/hosts_olsr"
)

var (
	hostsRE = regexp.MustCompile(`^([0-9a-fA-F\.:]+)\s+(\S+)(?:\s+#\s*(.*))?$`)
	// Secondary names of a node (interfaces other than the main one) and phone numbers.
	auxHostnameRE = regexp.MustCompile(`^(?:dtdlink\.|mid\d+\.|xlink\d+\.|lan\.)`)
	phoneRE       = regexp.MustCompile(`^[0-9]+$`)
)

func isNodeName(hostname string) bool {
	return !auxHostnameRE.MatchString(hostname) && !phoneRE.MatchString(hostname)
}

// ReadFromFile parses a hosts file of the form "IP hostname [# comment]".
func ReadFromFile(path string) ([]*data.MeshHost, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b), nil
}

func Parse(b []byte) []*data.MeshHost {
	scanner := bufio.NewScanner(bytes.NewReader(b))
	scanner.Split(bufio.ScanLines)

	var hosts []*data.MeshHost
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, commentPfx):
			continue
		}

		parts := hostsRE.FindStringSubmatch(line)
		if len(parts) < 3 || !isNodeName(parts[2]) {
			continue
		}
		hosts = append(hosts, &data.MeshHost{
			IP:       parts[1],
			Hostname: parts[2],
			Comment:  parts[3],
		})
	}
	return hosts
}

// FromPayload extracts the host list a node reports in its status document
// ("nodes" on current firmware, "hosts" on older releases).
func FromPayload(raw data.RawPayload) []*data.MeshHost {
	list, ok := raw["nodes"].([]any)
	if !ok {
		list, _ = raw["hosts"].([]any)
	}

	var hosts []*data.MeshHost
	for _, v := range list {
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		name, _ := entry["name"].(string)
		ip, _ := entry["ip"].(string)
		name, ip = strings.TrimSpace(name), strings.TrimSpace(ip)
		if name == "" && ip == "" {
			continue
		}
		if name != "" && !isNodeName(name) {
			continue
		}
		hosts = append(hosts, &data.MeshHost{IP: ip, Hostname: name})
	}
	return hosts
}

// Addresses returns the sorted, deduplicated addresses of hosts.
func Addresses(hosts []*data.MeshHost) []string {
	seen := make(map[string]bool)
	var addrs []string
	for _, h := range hosts {
		a := h.Address()
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return addrs
}
