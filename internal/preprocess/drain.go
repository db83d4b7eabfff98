package preprocess

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Wildcard replaces variable tokens in a template.
const Wildcard = "<*>"

// DrainConfig holds the Drain parse tree parameters.
type DrainConfig struct {
	// Depth is the maximum tree depth, including the root and length levels.
	Depth int
	// SimThreshold is the minimum similarity for joining a cluster.
	SimThreshold float64
	// MaxChildren bounds the children of a token node.
	MaxChildren int
}

// DefaultDrainConfig provides the usual Drain parameters for system logs.
var DefaultDrainConfig = DrainConfig{
	Depth:        4,
	SimThreshold: 0.5,
	MaxChildren:  100,
}

// Drain mines log templates with a fixed depth parse tree.
//
// The first tree level groups messages by token count and the next
// Depth-2 levels by their leading tokens. Messages reaching the same leaf
// join the most similar cluster at or above SimThreshold, turning
// differing positions into wildcards, or start a new cluster.
//
// A cluster's template can still widen after a message joins it, so the
// final template of a message is only known once all input is added.
type Drain struct {
	root     *treeNode
	cfg      DrainConfig
	clusters []*Cluster
}

type treeNode struct {
	children map[string]*treeNode
	clusters []*Cluster
}

func newTreeNode() *treeNode {
	return &treeNode{children: make(map[string]*treeNode)}
}

// Cluster is a group of messages sharing one template.
type Cluster struct {
	ID     string
	Tokens []string
	Count  int
}

// Template returns the cluster's template string.
func (c *Cluster) Template() string {
	return strings.Join(c.Tokens, " ")
}

// NewDrain creates a Drain miner. Zero or out of range parameters fall back
// to DefaultDrainConfig.
func NewDrain(cfg DrainConfig) *Drain {
	if cfg.Depth < 3 {
		cfg.Depth = DefaultDrainConfig.Depth
	}
	if cfg.SimThreshold <= 0 || cfg.SimThreshold > 1 {
		cfg.SimThreshold = DefaultDrainConfig.SimThreshold
	}
	if cfg.MaxChildren <= 0 {
		cfg.MaxChildren = DefaultDrainConfig.MaxChildren
	}
	return &Drain{root: newTreeNode(), cfg: cfg}
}

// Add assigns a message to a cluster and returns it.
func (d *Drain) Add(message string) *Cluster {
	tokens := strings.Fields(message)

	leaf := d.descend(tokens)
	if c := d.bestMatch(leaf, tokens); c != nil {
		c.Tokens = merge(c.Tokens, tokens)
		c.Count++
		return c
	}

	c := &Cluster{
		ID:     fmt.Sprintf("E%d", len(d.clusters)+1),
		Tokens: maskTokens(tokens),
		Count:  1,
	}
	d.clusters = append(d.clusters, c)
	leaf.clusters = append(leaf.clusters, c)
	return c
}

// descend walks, creating as needed, the path for tokens and returns the
// leaf node.
func (d *Drain) descend(tokens []string) *treeNode {
	lengthKey := fmt.Sprintf("len_%d", len(tokens))
	node, ok := d.root.children[lengthKey]
	if !ok {
		node = newTreeNode()
		d.root.children[lengthKey] = node
	}

	for i := 0; i < len(tokens) && i < d.cfg.Depth-2; i++ {
		key := tokens[i]
		if isVariableToken(key) {
			key = Wildcard
		}

		child, ok := node.children[key]
		if !ok {
			if len(node.children) >= d.cfg.MaxChildren {
				key = Wildcard
				child = node.children[key]
			}
			if child == nil {
				child = newTreeNode()
				node.children[key] = child
			}
		}
		node = child
	}
	return node
}

func (d *Drain) bestMatch(leaf *treeNode, tokens []string) *Cluster {
	var (
		best    *Cluster
		bestSim = -1.0
	)
	for _, c := range leaf.clusters {
		sim := similarity(c.Tokens, tokens)
		if sim >= d.cfg.SimThreshold && sim > bestSim {
			best, bestSim = c, sim
		}
	}
	return best
}

// Clusters returns all clusters sorted by count descending, ties in
// creation order.
func (d *Drain) Clusters() []*Cluster {
	out := make([]*Cluster, len(d.clusters))
	copy(out, d.clusters)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// Len returns the number of clusters.
func (d *Drain) Len() int {
	return len(d.clusters)
}

// Total returns the number of messages added.
func (d *Drain) Total() int {
	n := 0
	for _, c := range d.clusters {
		n += c.Count
	}
	return n
}

// Reset discards all clusters.
func (d *Drain) Reset() {
	d.root = newTreeNode()
	d.clusters = nil
}

var variablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^-?\d+(\.\d+)?$`),
	regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`),
	regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}(:\d+)?$`),
	regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`),
	regexp.MustCompile(`^blk_-?\d+$`),
}

// isVariableToken reports whether a token is likely a variable field.
func isVariableToken(token string) bool {
	if token == Wildcard {
		return true
	}
	for _, re := range variablePatterns {
		if re.MatchString(token) {
			return true
		}
	}
	// Long paths are usually per-request.
	return strings.HasPrefix(token, "/") && len(token) > 20
}

// similarity is the fraction of positions where the template and the
// message agree. Wildcards match anything.
func similarity(template, tokens []string) float64 {
	if len(template) == 0 && len(tokens) == 0 {
		return 1.0
	}
	maxLen := max(len(template), len(tokens))
	minLen := min(len(template), len(tokens))

	matches := 0
	for i := 0; i < minLen; i++ {
		if template[i] == Wildcard || tokens[i] == Wildcard || template[i] == tokens[i] {
			matches++
		}
	}
	return float64(matches) / float64(maxLen)
}

// merge widens a template so it also covers tokens.
func merge(template, tokens []string) []string {
	out := make([]string, max(len(template), len(tokens)))
	for i := range out {
		switch {
		case i >= len(template) || i >= len(tokens):
			out[i] = Wildcard
		case template[i] == tokens[i]:
			out[i] = template[i]
		default:
			out[i] = Wildcard
		}
	}
	return out
}

func maskTokens(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		if isVariableToken(t) {
			out[i] = Wildcard
		} else {
			out[i] = t
		}
	}
	return out
}
