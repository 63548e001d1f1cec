// Copyright 2024 Contributors to the Veraison project.
// SPDX-License-Identifier: Apache-2.0

package merkle

import "errors"

// BuildTree hashes leaves into a tree and returns its root together with the
// path of every leaf, in the form accepted by RootFromPath.  A level with an
// odd number of nodes pairs its last node with itself, so all paths have the
// same length.
func (o *Hasher) BuildTree(leaves [][]byte) ([]byte, [][]byte, error) {
	if len(leaves) == 0 {
		return nil, nil, errors.New("no leaves supplied")
	}

	level := make([][]byte, len(leaves))
	for i, l := range leaves {
		level[i] = o.Leaf(l)
	}

	paths := make([][]byte, len(leaves))

	// position of each leaf's ancestor in the current level
	pos := make([]int, len(leaves))
	for i := range pos {
		pos[i] = i
	}

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		for i, p := range pos {
			paths[i] = append(paths[i], level[p^1]...)
			pos[i] = p >> 1
		}

		next := make([][]byte, len(level)/2)
		for i := range next {
			next[i] = o.Node(level[2*i], level[2*i+1])
		}
		level = next
	}

	return level[0], paths, nil
}
