package runqueue

import "github.com/arctir-kernel/cfsproc/internal/proc"

// bstInsert walks from the root comparing virtual runtime; equal keys
// route right (spec §4.B). The new node lands as a red leaf.
func (t *Tree) bstInsert(z *proc.Proc) {
	z.TreeColor = proc.Red
	z.TreeLeft, z.TreeRight, z.TreeParent = nil, nil, nil

	if t.root == nil {
		t.root = z
		return
	}

	cur := t.root
	for {
		if cur.VirtualRuntime <= z.VirtualRuntime {
			if cur.TreeRight == nil {
				cur.TreeRight = z
				z.TreeParent = cur
				return
			}
			cur = cur.TreeRight
		} else {
			if cur.TreeLeft == nil {
				cur.TreeLeft = z
				z.TreeParent = cur
				return
			}
			cur = cur.TreeLeft
		}
	}
}

func grandparentOf(p *proc.Proc) *proc.Proc {
	if p != nil && p.TreeParent != nil {
		return p.TreeParent.TreeParent
	}
	return nil
}

func uncleOf(p *proc.Proc) *proc.Proc {
	gp := grandparentOf(p)
	if gp == nil {
		return nil
	}
	if p.TreeParent == gp.TreeLeft {
		return gp.TreeRight
	}
	return gp.TreeLeft
}

func (t *Tree) rotateLeft(x *proc.Proc) {
	y := x.TreeRight
	x.TreeRight = y.TreeLeft
	if y.TreeLeft != nil {
		y.TreeLeft.TreeParent = x
	}
	y.TreeParent = x.TreeParent

	if x.TreeParent == nil {
		t.root = y
	} else if x == x.TreeParent.TreeLeft {
		x.TreeParent.TreeLeft = y
	} else {
		x.TreeParent.TreeRight = y
	}

	y.TreeLeft = x
	x.TreeParent = y
}

func (t *Tree) rotateRight(x *proc.Proc) {
	y := x.TreeLeft
	x.TreeLeft = y.TreeRight
	if y.TreeRight != nil {
		y.TreeRight.TreeParent = x
	}
	y.TreeParent = x.TreeParent

	if x.TreeParent == nil {
		t.root = y
	} else if x == x.TreeParent.TreeRight {
		x.TreeParent.TreeRight = y
	} else {
		x.TreeParent.TreeLeft = y
	}

	y.TreeRight = x
	x.TreeParent = y
}

// insertFixup applies the five standard red-black insertion cases to the
// newly-inserted node z (spec §4.B). Case 2's test is "if z's parent is
// black, done" — the original kernel inverts this to `!x == RED` (spec
// §9); this loop condition implements the semantically correct "parent is
// red" test directly.
func (t *Tree) insertFixup(z *proc.Proc) {
	for z.TreeParent != nil && z.TreeParent.TreeColor == proc.Red {
		gp := grandparentOf(z)
		if gp == nil {
			break
		}
		uncle := uncleOf(z)

		if uncle != nil && uncle.TreeColor == proc.Red {
			// Case 3: red uncle — recolor and recurse on grandparent.
			z.TreeParent.TreeColor = proc.Black
			uncle.TreeColor = proc.Black
			gp.TreeColor = proc.Red
			z = gp
			continue
		}

		if z.TreeParent == gp.TreeLeft {
			if z == z.TreeParent.TreeRight {
				// Case 4: inner child — rotate to make it outer.
				z = z.TreeParent
				t.rotateLeft(z)
			}
			// Case 5: outer child — recolor and rotate at grandparent.
			z.TreeParent.TreeColor = proc.Black
			gp.TreeColor = proc.Red
			t.rotateRight(gp)
		} else {
			if z == z.TreeParent.TreeLeft {
				z = z.TreeParent
				t.rotateRight(z)
			}
			z.TreeParent.TreeColor = proc.Black
			gp.TreeColor = proc.Red
			t.rotateLeft(gp)
		}
		break
	}
	// Case 1: z is root.
	t.root.TreeColor = proc.Black
}

// transplant replaces the subtree rooted at u with the subtree rooted at v.
func (t *Tree) transplant(u, v *proc.Proc) {
	if u.TreeParent == nil {
		t.root = v
	} else if u == u.TreeParent.TreeLeft {
		u.TreeParent.TreeLeft = v
	} else {
		u.TreeParent.TreeRight = v
	}
	if v != nil {
		v.TreeParent = u.TreeParent
	}
}

func minimum(n *proc.Proc) *proc.Proc {
	for n.TreeLeft != nil {
		n = n.TreeLeft
	}
	return n
}

func isBlack(n *proc.Proc) bool { return n == nil || n.TreeColor == proc.Black }

// deleteNode removes z from the tree, rebalancing if a black node was
// removed. z is always the tree's current leftmost node in this runqueue's
// usage (ExtractMin only ever deletes min_vruntime), so it has no left
// child, but the general case is implemented for correctness rather than
// assumed away.
//
// The original kernel's retrieve_cases only handles the left-child side of
// this fixup (spec §9); deleteFixup below implements both mirrors.
func (t *Tree) deleteNode(z *proc.Proc) {
	y := z
	yOriginalColor := y.TreeColor
	var x, xParent *proc.Proc

	switch {
	case z.TreeLeft == nil:
		x = z.TreeRight
		xParent = z.TreeParent
		t.transplant(z, z.TreeRight)
	case z.TreeRight == nil:
		x = z.TreeLeft
		xParent = z.TreeParent
		t.transplant(z, z.TreeLeft)
	default:
		y = minimum(z.TreeRight)
		yOriginalColor = y.TreeColor
		x = y.TreeRight
		if y.TreeParent == z {
			xParent = y
		} else {
			xParent = y.TreeParent
			t.transplant(y, y.TreeRight)
			y.TreeRight = z.TreeRight
			y.TreeRight.TreeParent = y
		}
		t.transplant(z, y)
		y.TreeLeft = z.TreeLeft
		y.TreeLeft.TreeParent = y
		y.TreeColor = z.TreeColor
	}

	if yOriginalColor == proc.Black {
		t.deleteFixup(x, xParent)
	}

	z.TreeLeft, z.TreeRight, z.TreeParent = nil, nil, nil
}

// deleteFixup restores the red-black properties after removing a black
// node. x is the node that replaced the removed one (possibly nil), and
// xParent is tracked explicitly since a nil x carries no parent pointer of
// its own.
func (t *Tree) deleteFixup(x, xParent *proc.Proc) {
	for x != t.root && isBlack(x) && xParent != nil {
		if x == xParent.TreeLeft {
			w := xParent.TreeRight
			if w != nil && w.TreeColor == proc.Red {
				w.TreeColor = proc.Black
				xParent.TreeColor = proc.Red
				t.rotateLeft(xParent)
				w = xParent.TreeRight
			}
			if isBlack(childOrNil(w, false)) && isBlack(childOrNil(w, true)) {
				if w != nil {
					w.TreeColor = proc.Red
				}
				x = xParent
				xParent = x.TreeParent
			} else {
				if isBlack(childOrNil(w, true)) {
					if w.TreeLeft != nil {
						w.TreeLeft.TreeColor = proc.Black
					}
					w.TreeColor = proc.Red
					t.rotateRight(w)
					w = xParent.TreeRight
				}
				w.TreeColor = xParent.TreeColor
				xParent.TreeColor = proc.Black
				if w.TreeRight != nil {
					w.TreeRight.TreeColor = proc.Black
				}
				t.rotateLeft(xParent)
				x = t.root
				xParent = nil
			}
		} else {
			w := xParent.TreeLeft
			if w != nil && w.TreeColor == proc.Red {
				w.TreeColor = proc.Black
				xParent.TreeColor = proc.Red
				t.rotateRight(xParent)
				w = xParent.TreeLeft
			}
			if isBlack(childOrNil(w, true)) && isBlack(childOrNil(w, false)) {
				if w != nil {
					w.TreeColor = proc.Red
				}
				x = xParent
				xParent = x.TreeParent
			} else {
				if isBlack(childOrNil(w, false)) {
					if w.TreeRight != nil {
						w.TreeRight.TreeColor = proc.Black
					}
					w.TreeColor = proc.Red
					t.rotateLeft(w)
					w = xParent.TreeLeft
				}
				w.TreeColor = xParent.TreeColor
				xParent.TreeColor = proc.Black
				if w.TreeLeft != nil {
					w.TreeLeft.TreeColor = proc.Black
				}
				t.rotateRight(xParent)
				x = t.root
				xParent = nil
			}
		}
	}
	if x != nil {
		x.TreeColor = proc.Black
	}
}

// childOrNil returns w's right child if right is true, else its left
// child; nil if w itself is nil. A small helper to keep the two
// deleteFixup mirrors symmetric and readable.
func childOrNil(w *proc.Proc, right bool) *proc.Proc {
	if w == nil {
		return nil
	}
	if right {
		return w.TreeRight
	}
	return w.TreeLeft
}
