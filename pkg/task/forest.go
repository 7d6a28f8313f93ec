package task

// BuildForest rebuilds the parent/child hierarchy of one snapshot. Tasks
// whose ParentID resolves are appended to that parent's Children in input
// order; everything else becomes a root, roots keeping input order.
//
// The input is not modified: the forest is made of fresh copies. Every input
// task appears exactly once. Parent cycles are broken by promoting the
// earliest task of the cycle to a root.
func BuildForest(tasks []Task, opts ...Option) []*Task {
	s := newSettings(opts)
	index := indexByID(tasks)
	parents := make([]int, len(tasks))
	for i, t := range tasks {
		parents[i] = s.resolveParent(index, i, t)
	}
	return s.assemble(tasks, parents)
}

// BuildZoomForest is the fallback hierarchy keyed by zoom level. Explicit
// parents still win; any other task at rank N is attached to the first task
// in input order at the nearest coarser rank present. Year, Uncategorized
// and unranked tasks become roots. The resulting edges carry no semantic
// claim beyond "planned inside that horizon".
func BuildZoomForest(tasks []Task, opts ...Option) []*Task {
	s := newSettings(opts)
	index := indexByID(tasks)

	// first task seen at each zoom rank
	firstAtRank := make(map[int]int)
	for i, t := range tasks {
		r := t.Zoom.Rank()
		if r == 0 {
			continue
		}
		if _, ok := firstAtRank[r]; !ok {
			firstAtRank[r] = i
		}
	}

	parents := make([]int, len(tasks))
	for i, t := range tasks {
		if p := s.resolveParent(index, i, t); p >= 0 {
			parents[i] = p
			continue
		}
		parents[i] = -1
		rank := t.Zoom.Rank()
		if rank == 0 {
			continue
		}
		for up := rank + 1; up <= len(Zooms); up++ {
			if p, ok := firstAtRank[up]; ok {
				parents[i] = p
				break
			}
		}
	}
	return s.assemble(tasks, parents)
}

// indexByID maps each id to the position of its first occurrence.
func indexByID(tasks []Task) map[string]int {
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		if _, dup := index[t.ID]; !dup {
			index[t.ID] = i
		}
	}
	return index
}

func (s settings) resolveParent(index map[string]int, i int, t Task) int {
	if t.ParentID == "" {
		return -1
	}
	p, ok := index[t.ParentID]
	if !ok || p == i {
		s.logger.Debug("parent not found, treating as root", "task", t.ID, "parent", t.ParentID)
		return -1
	}
	return p
}

// assemble materialises the forest from a parent index per task (-1 for
// roots), breaking any cycles so every node stays reachable.
func (s settings) assemble(tasks []Task, parents []int) []*Task {
	n := len(tasks)
	children := make([][]int, n)
	for i, p := range parents {
		if p >= 0 {
			children[p] = append(children[p], i)
		}
	}

	reached := make([]bool, n)
	var mark func(i int)
	mark = func(i int) {
		if reached[i] {
			return
		}
		reached[i] = true
		for _, c := range children[i] {
			mark(c)
		}
	}
	for i, p := range parents {
		if p < 0 {
			mark(i)
		}
	}
	for i := range parents {
		if reached[i] {
			continue
		}
		// unreached means the parent chain loops; find the loop and cut it
		// at its earliest member
		seen := make(map[int]bool)
		j := i
		for !seen[j] {
			seen[j] = true
			j = parents[j]
		}
		head := j
		for k := parents[j]; k != j; k = parents[k] {
			if k < head {
				head = k
			}
		}
		s.logger.Debug("parent cycle, promoting to root", "task", tasks[head].ID, "parent", tasks[head].ParentID)
		p := parents[head]
		children[p] = removeIndex(children[p], head)
		parents[head] = -1
		mark(head)
	}

	nodes := make([]*Task, n)
	for i := range tasks {
		node := tasks[i]
		node.Children = nil
		nodes[i] = &node
	}
	var roots []*Task
	for i, p := range parents {
		if p < 0 {
			roots = append(roots, nodes[i])
		}
	}
	for i := range nodes {
		for _, c := range children[i] {
			nodes[i].Children = append(nodes[i].Children, nodes[c])
		}
	}
	return roots
}

func removeIndex(list []int, v int) []int {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

// Walk visits the forest depth-first in pre-order. Returning false from fn
// skips the node's children.
func Walk(forest []*Task, fn func(t *Task, depth int) bool) {
	var visit func(nodes []*Task, depth int)
	visit = func(nodes []*Task, depth int) {
		for _, t := range nodes {
			if fn(t, depth) {
				visit(t.Children, depth+1)
			}
		}
	}
	visit(forest, 0)
}

// Flatten lists every node of the forest in pre-order.
func Flatten(forest []*Task) []*Task {
	var out []*Task
	Walk(forest, func(t *Task, _ int) bool {
		out = append(out, t)
		return true
	})
	return out
}

// Count returns the number of nodes in the forest.
func Count(forest []*Task) int {
	n := 0
	Walk(forest, func(*Task, int) bool {
		n++
		return true
	})
	return n
}
