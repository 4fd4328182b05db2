package directory

import (
	"github.com/mharlan/fat32vol/ferrors"
	"github.com/mharlan/fat32vol/internal/fat"
	"github.com/mharlan/fat32vol/internal/geometry"
	"github.com/mharlan/fat32vol/internal/imageio"
)

// Chain is a directory's full storage: every cluster reachable from its
// first cluster, loaded in order. spec.md covers single-cluster directories
// explicitly and calls multi-cluster traversal "an expected extension
// point"; Chain is that extension, built on the same FAT chain walk every
// file uses.
type Chain struct {
	geo     *geometry.Geometry
	image   *imageio.Image
	fatTbl  *fat.Table
	head    uint32
	clusters []*Cluster
}

// OpenChain loads every cluster in the directory chain starting at head.
func OpenChain(geo *geometry.Geometry, image *imageio.Image, fatTbl *fat.Table, head uint32) (*Chain, ferrors.FatError) {
	clusterNums, err := fatTbl.Iterate(head)
	if err != nil {
		return nil, err
	}

	clusters := make([]*Cluster, 0, len(clusterNums))
	for _, num := range clusterNums {
		c, err := Read(geo, image, num)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, c)
	}

	return &Chain{geo: geo, image: image, fatTbl: fatTbl, head: head, clusters: clusters}, nil
}

// Entries returns every valid entry across the whole chain, in cluster
// order.
func (c *Chain) Entries() []Entry {
	out := []Entry{}
	for _, cl := range c.clusters {
		out = append(out, cl.Entries()...)
	}
	return out
}

// Find searches every cluster in the chain in order for name.
func (c *Chain) Find(name [11]byte) (ScanResult, *Cluster) {
	for _, cl := range c.clusters {
		res := cl.Find(name)
		if res.Present {
			return res, cl
		}
	}
	return ScanResult{}, nil
}

// AllocateSlot finds the first reusable slot across the chain, extending the
// chain with a freshly zeroed cluster if every existing cluster is full.
func (c *Chain) AllocateSlot() (*Cluster, int, ferrors.FatError) {
	for _, cl := range c.clusters {
		idx, err := cl.AllocateSlot()
		if err == nil {
			return cl, idx, nil
		}
	}

	tail := c.clusters[len(c.clusters)-1]
	newClusterNum, err := c.fatTbl.Extend(tail.cluster)
	if err != nil {
		return nil, 0, err
	}

	newCluster, err := Read(c.geo, c.image, newClusterNum)
	if err != nil {
		return nil, 0, err
	}
	for i := range newCluster.entries {
		newCluster.entries[i] = Entry{}
	}
	if err := newCluster.WriteBack(); err != nil {
		return nil, 0, err
	}

	c.clusters = append(c.clusters, newCluster)
	return newCluster, 0, nil
}

// FirstCluster returns the directory's own first cluster.
func (c *Chain) FirstCluster() uint32 { return c.head }

// GetParentCluster reads the ".." entry from this directory's first cluster
// and resolves it to the parent's first cluster (root, by convention, when
// the stored value is 0).
func (c *Chain) GetParentCluster(rootCluster uint32) (uint32, ferrors.FatError) {
	return c.clusters[0].GetParentCluster(rootCluster)
}
