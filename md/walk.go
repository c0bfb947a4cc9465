// Copyright 2025 The marksite Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package md

// A Cursor describes a [Node] encountered during [Walk].
type Cursor struct {
	node   Node
	parent Node
}

// Node returns the current [Node].
func (c *Cursor) Node() Node {
	return c.node
}

// Parent returns the parent of the current [Node],
// or the zero Node at the root.
func (c *Cursor) Parent() Node {
	return c.parent
}

// WalkOptions is the set of parameters to [Walk].
type WalkOptions struct {
	// If Pre is not nil, it is called for each node
	// before the node's children are traversed.
	// If Pre returns false, the children are skipped
	// and Post is not called for that node.
	Pre func(c *Cursor) bool
	// If Post is not nil, it is called for each node
	// after the node's children are traversed.
	// If Post returns false, the traversal stops.
	Post func(c *Cursor) bool
}

// Walk traverses the tree under root in depth-first order,
// calling [WalkOptions.Pre] and [WalkOptions.Post] at each node.
func Walk(root Node, opts *WalkOptions) {
	cursor := new(Cursor)
	walk(root, Node{}, opts, cursor)
}

func walk(n, parent Node, opts *WalkOptions, cursor *Cursor) bool {
	if opts.Pre != nil {
		cursor.node, cursor.parent = n, parent
		if !opts.Pre(cursor) {
			return true
		}
	}
	for i, count := 0, n.ChildCount(); i < count; i++ {
		if !walk(n.Child(i), n, opts, cursor) {
			return false
		}
	}
	if opts.Post != nil {
		cursor.node, cursor.parent = n, parent
		return opts.Post(cursor)
	}
	return true
}
