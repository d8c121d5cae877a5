package cib

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	out   string
	err   error
	calls int
}

func (f *fakeLister) ListTickets(context.Context) (string, error) {
	f.calls++
	return f.out, f.err
}

const boothConf = `# booth configuration
transport = UDP
port = 9929
arbitrator = "192.168.100.9"
site = "192.168.201.100"
site = 192.168.202.100
ticket = "ticketA"
ticket = "ticketC;1000"
  ticket=ticketD
`

func vipPrimitive(id, ip string) string {
	return `<primitive id="` + id + `" class="ocf" provider="heartbeat" type="IPaddr2"><instance_attributes id="` + id + `-ia">` +
		nvpair("ip", ip) + `</instance_attributes></primitive>`
}

func TestParseBoothConfig(t *testing.T) {
	cfg := ParseBoothConfig(boothConf)

	assert.Equal(t, []string{"192.168.201.100", "192.168.202.100"}, cfg.Sites)
	assert.Equal(t, []string{"192.168.100.9"}, cfg.Arbitrators)
	assert.Equal(t, []string{"ticketA", "ticketC", "ticketD"}, cfg.Tickets)
}

func TestParseBoothConfigEmpty(t *testing.T) {
	cfg := ParseBoothConfig("")
	assert.Empty(t, cfg.Sites)
	assert.Empty(t, cfg.Tickets)
}

func TestTicketOnlyInConstraint(t *testing.T) {
	s := buildXML(t, fixture{
		constraints: `<rsc_ticket id="rt" rsc="p" ticket="T1"/>`,
	}.xml(), Options{})

	require.Contains(t, s.Tickets, "T1")
	assert.Equal(t, &Ticket{}, s.Tickets["T1"])
	assert.Empty(t, s.Tickets["T1"].LastGranted)
}

func TestTicketStateWinsOverConstraint(t *testing.T) {
	s := buildXML(t, fixture{
		constraints: `<rsc_ticket id="rt" rsc="p" ticket="T1"/>`,
		status:      `<tickets><ticket_state id="T1" granted="true" standby="false" last-granted="1700000000"/></tickets>`,
	}.xml(), Options{})

	assert.Equal(t, &Ticket{Granted: true, LastGranted: "1700000000"}, s.Tickets["T1"])
}

func TestBoothSite(t *testing.T) {
	lister := &fakeLister{out: "ticket: ticketA, leader: 192.168.202.100, expires: 2026-10-19 10:00:00, commit: 1700000000\n" +
		"ticket: unknown, leader: none\n" +
		"garbage line\n"}

	s := buildXML(t, fixture{
		resources: vipPrimitive("booth-ip", "192.168.201.100"),
	}.xml(), Options{Booth: ParseBoothConfig(boothConf), Tickets: lister})

	assert.Equal(t, "192.168.201.100", s.Booth.Me)
	assert.Equal(t, []string{"192.168.201.100", "192.168.202.100"}, s.Booth.Sites)
	assert.Equal(t, 1, lister.calls)

	require.Contains(t, s.Tickets, "ticketA")
	assert.Equal(t, &Ticket{Leader: "192.168.202.100", Expires: "2026-10-19 10:00:00", Commit: "1700000000"}, s.Tickets["ticketA"])
	assert.Contains(t, s.Tickets, "ticketC")
	assert.Contains(t, s.Tickets, "ticketD")
	assert.NotContains(t, s.Tickets, "unknown")
}

func TestBoothNotASite(t *testing.T) {
	lister := &fakeLister{}
	s := buildXML(t, fixture{
		resources: vipPrimitive("vip", "10.0.0.1"),
	}.xml(), Options{Booth: ParseBoothConfig(boothConf), Tickets: lister})

	assert.Empty(t, s.Booth.Me)
	assert.Zero(t, lister.calls)
	assert.Empty(t, s.Tickets, "booth tickets only count on a booth site")
}

func TestBoothListerFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("booth: connection refused")}
	s := buildXML(t, fixture{
		resources: vipPrimitive("booth-ip", "192.168.202.100"),
	}.xml(), Options{Booth: ParseBoothConfig(boothConf), Tickets: lister})

	assert.Equal(t, "192.168.202.100", s.Booth.Me)
	assert.Len(t, s.Tickets, 3)
	assert.Equal(t, StatusOK, s.Meta.Status)
}

func TestMultipleBoothSites(t *testing.T) {
	s := buildXML(t, fixture{
		resources: vipPrimitive("ip1", "192.168.201.100") + vipPrimitive("ip2", "192.168.202.100"),
	}.xml(), Options{Booth: ParseBoothConfig(boothConf)})

	assert.Equal(t, "192.168.201.100", s.Booth.Me)
	assert.Equal(t, []DiagnosticKind{KindMultipleBoothSites}, diagKinds(s))
	assert.Equal(t, SeverityInfo, s.Diagnostics[0].Severity)
	assert.Equal(t, StatusOK, s.Meta.Status)
}

func TestMergeTicketList(t *testing.T) {
	tickets := map[string]*Ticket{"A": {Granted: true}}
	MergeTicketList("ticket: A, leader: site1, expires: never", tickets)
	assert.Equal(t, &Ticket{Granted: true, Leader: "site1", Expires: "never"}, tickets["A"])
	assert.Len(t, tickets, 1)
}

// FuzzParseBoothConfig exercises the booth.conf line parser on arbitrary
// input. Only declared keys may contribute values.
func FuzzParseBoothConfig(f *testing.F) {
	f.Add(boothConf)
	f.Add(`site=""`)
	f.Add("ticket = ';'\n")
	f.Add("site = '\n")

	f.Fuzz(func(t *testing.T, data string) {
		cfg := ParseBoothConfig(data)
		if !strings.Contains(data, "=") && len(cfg.Sites)+len(cfg.Arbitrators)+len(cfg.Tickets) > 0 {
			t.Fatalf("values parsed from input without assignments: %+v", cfg)
		}
	})
}

// FuzzMergeTicketList must never add tickets that were not already known.
func FuzzMergeTicketList(f *testing.F) {
	f.Add("ticket: A, leader: site1, expires: never, commit: 42")
	f.Add("ticket: B, leader: NONE")
	f.Add("leader: orphan\nticket: A")
	f.Add("")
	f.Fuzz(func(t *testing.T, out string) {
		tickets := map[string]*Ticket{"A": {Granted: true}}
		MergeTicketList(out, tickets)
		if len(tickets) != 1 || tickets["A"] == nil || !tickets["A"].Granted {
			t.Fatalf("ticket set changed: %+v", tickets)
		}
	})
}
