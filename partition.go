package sods

import (
	"fmt"
	"strings"
)

const keySep = "\x00"

// Partition is the set of rows of a Table that share one value tuple over a key list.
type Partition struct {
	Key  []string
	Rows []int
}

func (p *Partition) Size() int {
	return len(p.Rows)
}

func (p *Partition) String() string {
	return strings.Join(p.Key, "|")
}

// Partition splits t by the values of keys. Partitions are returned in order of first appearance
// and the rows within a partition keep their order in t. With no keys, all rows form one partition.
func (t *Table) Partition(keys ...string) ([]*Partition, error) {
	var cols []*Col
	for _, key := range keys {
		var (
			col *Col
			e   error
		)
		if col, e = t.Column(key); e != nil {
			return nil, fmt.Errorf("partition key: %w", e)
		}

		cols = append(cols, col)
	}

	var parts []*Partition
	index := make(map[string]*Partition)
	for row := 0; row < t.RowCount(); row++ {
		key := make([]string, len(cols))
		for ind, col := range cols {
			key[ind] = col.ElementString(row)
		}

		id := strings.Join(key, keySep)
		p, ok := index[id]
		if !ok {
			p = &Partition{Key: key}
			index[id] = p
			parts = append(parts, p)
		}

		p.Rows = append(p.Rows, row)
	}

	return parts, nil
}
