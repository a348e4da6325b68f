// Package cluster groups eligible nodes into clusters and prunes clusters
// that are not worth offloading.
//
// Clusters are sets of node ids, never node pointers, so the table stays
// valid while later phases replace members with call nodes. Cluster ids are
// dense after assignment and become sparse after deassignment; nothing
// renumbers them.
package cluster

import (
	"sort"

	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/passerr"
)

// ID identifies a cluster within one pipeline run.
type ID int

// Cluster is a set of member node ids sharing one device.
type Cluster struct {
	ID      ID
	Members []graph.NodeID
	Device  string
}

// Size returns the member count.
func (c *Cluster) Size() int { return len(c.Members) }

// Contains reports whether n is a member.
func (c *Cluster) Contains(n graph.NodeID) bool {
	i := sort.Search(len(c.Members), func(i int) bool { return c.Members[i] >= n })
	return i < len(c.Members) && c.Members[i] == n
}

// Table is the node to cluster assignment of one run.
type Table struct {
	byNode   map[graph.NodeID]ID
	clusters map[ID]*Cluster
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		byNode:   make(map[graph.NodeID]ID),
		clusters: make(map[ID]*Cluster),
	}
}

// Add assigns node n to cluster id, creating the cluster if needed. A node
// may belong to only one cluster.
func (t *Table) Add(id ID, n graph.NodeID, device string) error {
	if prev, ok := t.byNode[n]; ok {
		return passerr.Clustering("cluster.Table.Add", "node %d already assigned to cluster %d, cannot join %d", n, prev, id)
	}
	c, ok := t.clusters[id]
	if !ok {
		c = &Cluster{ID: id, Device: device}
		t.clusters[id] = c
	}
	i := sort.Search(len(c.Members), func(i int) bool { return c.Members[i] >= n })
	c.Members = append(c.Members, 0)
	copy(c.Members[i+1:], c.Members[i:])
	c.Members[i] = n
	t.byNode[n] = id
	return nil
}

// Remove drops a cluster; its members revert to unassigned.
func (t *Table) Remove(id ID) {
	c, ok := t.clusters[id]
	if !ok {
		return
	}
	for _, n := range c.Members {
		delete(t.byNode, n)
	}
	delete(t.clusters, id)
}

// ClusterOf returns the cluster of a node, if any.
func (t *Table) ClusterOf(n graph.NodeID) (ID, bool) {
	id, ok := t.byNode[n]
	return id, ok
}

// Get returns a cluster by id, or nil.
func (t *Table) Get(id ID) *Cluster {
	return t.clusters[id]
}

// Len returns the number of clusters.
func (t *Table) Len() int { return len(t.clusters) }

// IDs returns cluster ids in ascending order.
func (t *Table) IDs() []ID {
	ids := make([]ID, 0, len(t.clusters))
	for id := range t.clusters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clusters returns clusters in ascending id order.
func (t *Table) Clusters() []*Cluster {
	ids := t.IDs()
	out := make([]*Cluster, len(ids))
	for i, id := range ids {
		out[i] = t.clusters[id]
	}
	return out
}

// Assignment returns a copy of the node to cluster map, for diagnostics.
func (t *Table) Assignment() map[graph.NodeID]ID {
	out := make(map[graph.NodeID]ID, len(t.byNode))
	for n, id := range t.byNode {
		out[n] = id
	}
	return out
}
