package cib

import (
	"bufio"
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// BoothConfig is the subset of booth.conf needed to place this cluster in a
// geo-cluster.
type BoothConfig struct {
	Sites       []string
	Arbitrators []string
	Tickets     []string
}

// BoothInfo reports the geo-cluster layout and, when identified, the site
// address this cluster answers on.
type BoothInfo struct {
	Sites       []string `json:"sites"`
	Arbitrators []string `json:"arbitrators"`
	Tickets     []string `json:"tickets"`
	Me          string   `json:"me,omitempty"`
}

func newBoothInfo() BoothInfo {
	return BoothInfo{Sites: []string{}, Arbitrators: []string{}, Tickets: []string{}}
}

var boothLine = regexp.MustCompile(`^\s*(site|arbitrator|ticket)\s*=(.+)`)

// ParseBoothConfig reads site, arbitrator and ticket declarations. Values may
// be quoted and may carry a legacy ";expiry" suffix, which is dropped.
func ParseBoothConfig(data string) BoothConfig {
	var cfg BoothConfig
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		m := boothLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		v := stripQuotes(strings.TrimSpace(m[2]))
		if v == "" {
			continue
		}
		v, _, _ = strings.Cut(v, ";")
		switch m[1] {
		case "site":
			cfg.Sites = append(cfg.Sites, v)
		case "arbitrator":
			cfg.Arbitrators = append(cfg.Arbitrators, v)
		case "ticket":
			cfg.Tickets = append(cfg.Tickets, v)
		}
	}
	return cfg
}

func stripQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

var ticketField = regexp.MustCompile(`(ticket|leader|expires|commit):\s*(.*)`)

// MergeTicketList folds `booth client list` output into tickets. Only tickets
// already present are updated.
func MergeTicketList(out string, tickets map[string]*Ticket) {
	for _, line := range strings.Split(out, "\n") {
		var t *Ticket
		for _, pair := range strings.Split(line, ",") {
			m := ticketField.FindStringSubmatch(pair)
			if m == nil {
				continue
			}
			switch m[1] {
			case "ticket":
				t = tickets[m[2]]
			case "leader":
				if t != nil {
					t.Leader = m[2]
				}
			case "expires":
				if t != nil {
					t.Expires = m[2]
				}
			case "commit":
				if t != nil {
					t.Commit = m[2]
				}
			}
		}
	}
}

// buildTickets unions ticket state records, rsc_ticket constraints and, on a
// booth site, the tickets declared in booth.conf. The first source to name a
// ticket wins.
func (b *builder) buildTickets(ctx context.Context) (map[string]*Ticket, BoothInfo) {
	tickets := make(map[string]*Ticket)
	for _, ts := range b.root.FindElements("./status/tickets/ticket_state") {
		id := ts.SelectAttrValue("id", "")
		if _, ok := tickets[id]; ok {
			continue
		}
		tickets[id] = &Ticket{
			Granted:     parseBool(ts.SelectAttrValue("granted", ""), false),
			Standby:     parseBool(ts.SelectAttrValue("standby", ""), false),
			LastGranted: ts.SelectAttrValue("last-granted", ""),
		}
	}
	for _, rt := range b.root.FindElements("./configuration/constraints/rsc_ticket") {
		id := rt.SelectAttrValue("ticket", "")
		if _, ok := tickets[id]; !ok {
			tickets[id] = &Ticket{}
		}
	}

	booth := newBoothInfo()
	booth.Sites = append(booth.Sites, b.opts.Booth.Sites...)
	booth.Arbitrators = append(booth.Arbitrators, b.opts.Booth.Arbitrators...)
	booth.Tickets = append(booth.Tickets, b.opts.Booth.Tickets...)
	slices.Sort(booth.Sites)

	if len(booth.Sites) > 0 {
		for _, nv := range b.root.FindElements("./configuration//primitive[@type='IPaddr2']/instance_attributes/nvpair[@name='ip']") {
			ip := nv.SelectAttrValue("value", "")
			if !slices.Contains(booth.Sites, ip) {
				continue
			}
			if booth.Me == "" {
				booth.Me = ip
				continue
			}
			slog.Warn("multiple booth sites in CIB", "first", booth.Me, "also", ip)
			b.diag(KindMultipleBoothSites, SeverityInfo, map[string]string{"first": booth.Me, "also": ip})
		}
	}

	if booth.Me != "" {
		for _, t := range booth.Tickets {
			if _, ok := tickets[t]; !ok {
				tickets[t] = &Ticket{}
			}
		}
		if b.opts.Tickets != nil {
			out, err := b.opts.Tickets.ListTickets(ctx)
			if err != nil {
				slog.Warn("booth ticket query failed", "site", booth.Me, "error", err)
			} else {
				MergeTicketList(out, tickets)
			}
		}
	}
	return tickets, booth
}
