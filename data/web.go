package data

import "time"

type WebInfo struct {
	Version   string    `json:"version"`
	Started   time.Time `json:"started"`
	Nodes     int       `json:"nodes"`
	Reachable int       `json:"reachable"`
}

type WebDiscovery struct {
	ID         string       `json:"id"`
	Seeds      []string     `json:"seeds"`
	Visited    int          `json:"visited"`
	Cancelled  bool         `json:"cancelled"`
	Candidates []*Candidate `json:"candidates"`
}

type WebConfigChange struct {
	Success  bool     `json:"success"`
	Messages []string `json:"messages"`
}

type WebIndex struct {
	Version   string   `json:"version"`
	Formats   []string `json:"formats"`
	Endpoints []string `json:"endpoints"`
}

type WebNode struct {
	Status  *NodeStatus    `json:"status"`
	Changes *WebSubChanges `json:"last_changes,omitempty"`
}

type WebSubChanges struct {
	Added   []SubEntityKey `json:"added,omitempty"`
	Removed []SubEntityKey `json:"removed,omitempty"`
	Updated []SubEntityKey `json:"updated,omitempty"`
}

type WebShowConfig struct {
	Success  bool     `json:"success"`
	Messages []string `json:"messages,omitempty"`
	Diff     bool     `json:"diff,omitempty"`
	Content  string   `json:"content,omitempty"`
}
