package cib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/beevik/etree"
)

// Status classifies the cluster as a whole.
type Status string

const (
	StatusOK          Status = "ok"
	StatusMaintenance Status = "maintenance"
	StatusErrors      Status = "errors"
	StatusNoStonith   Status = "nostonith"
	StatusOffline     Status = "offline"
)

// ErrEmptyDocument is returned by Parse when the input has no root element.
var ErrEmptyDocument = errors.New("CIB document has no root element")

// TicketLister queries the geo-cluster ticket client. The output is one
// ticket per line, each a comma-separated list of "key: value" fragments.
type TicketLister interface {
	ListTickets(ctx context.Context) (string, error)
}

// Options carries inputs that are not part of the CIB itself.
type Options struct {
	// DC is the designated coordinator name; "Unknown" when empty.
	DC string
	// Host is the name of the host the snapshot was taken from.
	Host string
	// Booth is the parsed geo-cluster configuration, if any.
	Booth BoothConfig
	// Tickets is consulted only when this cluster is a booth site.
	Tickets TicketLister
	// Classify decides node liveness from node_state records. Defaults to
	// DefaultOnlineStatus.
	Classify OnlineClassifier
}

// Meta summarizes a snapshot.
type Meta struct {
	Epoch   string `json:"epoch"`
	DC      string `json:"dc"`
	Host    string `json:"host"`
	Version string `json:"version"`
	Stack   string `json:"stack"`
	Status  Status `json:"status"`
}

// Snapshot is the derived model of one CIB. It is not modified after Build
// or Offline returns.
type Snapshot struct {
	Meta          Meta                 `json:"meta"`
	Config        *ClusterConfig       `json:"config"`
	Nodes         []*Node              `json:"nodes"`
	Resources     []*Resource          `json:"resources"`
	ResourcesByID map[string]*Resource `json:"-"`
	ResourceCount int                  `json:"resource_count"`
	Templates     []Template           `json:"templates"`
	Tags          []Tag                `json:"tags"`
	Constraints   []*Constraint        `json:"constraints"`
	Tickets       map[string]*Ticket   `json:"tickets"`
	Booth         BoothInfo            `json:"booth"`
	Diagnostics   []Diagnostic         `json:"errors"`
}

// Resource returns the resource with the given id.
func (s *Snapshot) Resource(id string) (*Resource, bool) {
	r, ok := s.ResourcesByID[id]
	return r, ok
}

// Node returns the node with the given uname.
func (s *Snapshot) Node(uname string) (*Node, bool) {
	for _, n := range s.Nodes {
		if n.Uname == uname {
			return n, true
		}
	}
	return nil, false
}

// IsOffline reports whether the snapshot could not be built.
func (s *Snapshot) IsOffline() bool { return s.Meta.Status == StatusOffline }

// Primitives returns the top-level primitives and the primitive children of
// top-level containers.
func (s *Snapshot) Primitives() []*Resource {
	var out []*Resource
	for _, r := range s.Resources {
		if r.IsContainer() {
			for _, c := range r.Children {
				if !c.IsContainer() {
					out = append(out, c)
				}
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// Parse reads a CIB document.
func Parse(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parsing CIB: %w", err)
	}
	if doc.Root() == nil {
		return nil, ErrEmptyDocument
	}
	return doc, nil
}

// Offline returns the minimal snapshot used when no CIB could be read. It
// carries a single danger diagnostic describing why.
func Offline(kind DiagnosticKind, params map[string]string) *Snapshot {
	return &Snapshot{
		Meta: Meta{Status: StatusOffline},
		Config: &ClusterConfig{
			CRM: NewProperties(
				Property{"cluster-infrastructure", "None"},
				Property{"dc-version", "None"},
			),
			RscDefaults: NewProperties(),
			OpDefaults:  NewProperties(),
		},
		Nodes:         []*Node{},
		Resources:     []*Resource{},
		ResourcesByID: map[string]*Resource{},
		Templates:     []Template{},
		Tags:          []Tag{},
		Constraints:   []*Constraint{},
		Tickets:       map[string]*Ticket{},
		Booth:         newBoothInfo(),
		Diagnostics:   []Diagnostic{{Kind: kind, Severity: SeverityDanger, Params: params}},
	}
}

// builder holds the working state of a single Build call.
type builder struct {
	root   *etree.Element
	opts   Options
	config *ClusterConfig
	nodes  []*Node
	byID   map[string]*Resource
	diags  []Diagnostic
}

func (b *builder) diag(kind DiagnosticKind, sev Severity, params map[string]string) {
	b.diags = append(b.diags, Diagnostic{Kind: kind, Severity: sev, Params: params})
}

// Build derives a snapshot from a parsed CIB. A nil or empty document yields
// an offline snapshot.
func Build(ctx context.Context, doc *etree.Document, opts Options) *Snapshot {
	if doc == nil || doc.Root() == nil {
		return Offline(KindParseFailed, map[string]string{"error": ErrEmptyDocument.Error()})
	}
	if opts.Classify == nil {
		opts.Classify = DefaultOnlineStatus
	}

	b := &builder{
		root: doc.Root(),
		opts: opts,
		byID: make(map[string]*Resource),
	}
	b.config = extractConfig(b.root)
	b.buildNodes()
	resources := b.buildResources()

	snap := &Snapshot{
		Config:        b.config,
		Resources:     resources,
		ResourcesByID: b.byID,
		Templates:     b.buildTemplates(),
		Constraints:   b.buildConstraints(),
		Tags:          b.buildTags(),
	}

	// Nodes are walked in configuration order so that synthesized clone
	// instance numbers come out in the same order pacemaker assigns them.
	for _, n := range b.nodes {
		b.reduceNode(n)
	}

	snap.ResourceCount = b.reconcile(resources)
	rollup(resources)
	b.finalizeNodes()
	snap.Nodes = b.nodes

	dc := strings.TrimSpace(opts.DC)
	if dc == "" {
		dc = "Unknown"
	}
	snap.Tickets, snap.Booth = b.buildTickets(ctx)

	if !b.config.StonithEnabled() {
		b.diag(KindStonithDisabled, SeverityWarning, nil)
	}
	snap.Diagnostics = b.diags
	if snap.Diagnostics == nil {
		snap.Diagnostics = []Diagnostic{}
	}

	snap.Meta = Meta{
		Epoch:   epochString(b.root),
		DC:      dc,
		Host:    opts.Host,
		Version: b.config.CRM.Value("dc-version"),
		Stack:   b.config.CRM.Value("cluster-infrastructure"),
	}
	snap.Meta.Status = classify(snap)

	slog.Debug("CIB snapshot built",
		"epoch", snap.Meta.Epoch,
		"status", snap.Meta.Status,
		"nodes", len(snap.Nodes),
		"resources", len(snap.ResourcesByID),
		"instances", snap.ResourceCount,
		"diagnostics", len(snap.Diagnostics),
	)
	return snap
}

// ErrorCount is the number of diagnostics that count as errors.
func (s *Snapshot) ErrorCount() int {
	n := 0
	for _, d := range s.Diagnostics {
		if d.CountsAsError() {
			n++
		}
	}
	return n
}

// classify picks the cluster status for a built snapshot.
func classify(s *Snapshot) Status {
	for _, d := range s.Diagnostics {
		if d.CountsAsError() {
			return StatusErrors
		}
	}
	if !s.Config.StonithEnabled() {
		return StatusNoStonith
	}
	for _, n := range s.Nodes {
		if n.Maintenance {
			return StatusMaintenance
		}
	}
	return StatusOK
}

// epochString formats the CIB version as admin_epoch:epoch:num_updates.
func epochString(root *etree.Element) string {
	get := func(k string) string { return root.SelectAttrValue(k, "0") }
	return get("admin_epoch") + ":" + get("epoch") + ":" + get("num_updates")
}

// ParseDesignatedCoordinator extracts the node name from `crmadmin -D`
// output ("Designated Controller is: node1").
func ParseDesignatedCoordinator(out string) string {
	out = strings.TrimSpace(out)
	if i := strings.LastIndex(out, " "); i >= 0 {
		out = out[i+1:]
	}
	return out
}
