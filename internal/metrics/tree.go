package metrics

import (
	"github.com/sells-group/parser-bench/internal/model"
)

// Tree construction: a flat element list nests into a forest under a
// virtual page root. Each heading pops every open heading of equal or
// higher level; body elements attach to the innermost open heading. A
// heading hierarchy is always a forest, so a stack builder suffices and
// no parent pointers are kept.

type buildNode struct {
	kind     model.ElementKind // "" marks the virtual root
	label    string
	level    int
	children []*buildNode
}

func buildTree(elements []model.Element) *buildNode {
	root := &buildNode{level: 0}
	stack := []*buildNode{root}

	for _, el := range elements {
		if el.Kind == model.ElementHeading {
			for len(stack) > 1 && stack[len(stack)-1].level >= el.Level {
				stack = stack[:len(stack)-1]
			}
			node := &buildNode{kind: el.Kind, label: el.Text, level: el.Level}
			top := stack[len(stack)-1]
			top.children = append(top.children, node)
			stack = append(stack, node)
			continue
		}
		node := &buildNode{kind: el.Kind, label: el.PlainText()}
		top := stack[len(stack)-1]
		top.children = append(top.children, node)
	}
	return root
}

// pageTree is the postorder form consumed by the edit-distance DP.
// Arrays are 1-based; index 0 is unused.
type pageTree struct {
	kinds    []model.ElementKind
	labels   []string
	lmld     []int // leftmost leaf descendant, per postorder index
	keyroots []int
	size     int
}

func flatten(root *buildNode) *pageTree {
	t := &pageTree{
		kinds:  []model.ElementKind{""},
		labels: []string{""},
		lmld:   []int{0},
	}

	var walk func(n *buildNode) int
	walk = func(n *buildNode) int {
		firstLeaf := 0
		for _, c := range n.children {
			ci := walk(c)
			if firstLeaf == 0 {
				firstLeaf = t.lmld[ci]
			}
		}
		t.kinds = append(t.kinds, n.kind)
		t.labels = append(t.labels, n.label)
		idx := len(t.kinds) - 1
		if firstLeaf == 0 {
			firstLeaf = idx
		}
		t.lmld = append(t.lmld, firstLeaf)
		return idx
	}
	walk(root)
	t.size = len(t.kinds) - 1

	// Keyroots: nodes with no later node sharing their leftmost leaf.
	last := make(map[int]int)
	for i := 1; i <= t.size; i++ {
		last[t.lmld[i]] = i
	}
	for i := 1; i <= t.size; i++ {
		if last[t.lmld[i]] == i {
			t.keyroots = append(t.keyroots, i)
		}
	}
	return t
}

// relabelCost is the cost of turning one node into another: 0 for the two
// virtual roots, 1 across element kinds, otherwise one minus the text
// edit-similarity of the node texts (never above 1).
func relabelCost(t1 *pageTree, i int, t2 *pageTree, j int) float64 {
	if t1.kinds[i] != t2.kinds[j] {
		return 1
	}
	if t1.kinds[i] == "" {
		return 0
	}
	cost := 1 - EditSimilarity(t1.labels[i], t2.labels[j])
	if cost > 1 {
		cost = 1
	}
	return cost
}

// treeEditDistance is the Zhang–Shasha ordered tree edit distance with
// unit insert/delete cost and relabelCost for renames.
func treeEditDistance(t1, t2 *pageTree) float64 {
	td := make([][]float64, t1.size+1)
	for i := range td {
		td[i] = make([]float64, t2.size+1)
	}

	for _, i := range t1.keyroots {
		for _, j := range t2.keyroots {
			forestDist(t1, t2, i, j, td)
		}
	}
	return td[t1.size][t2.size]
}

func forestDist(t1, t2 *pageTree, i, j int, td [][]float64) {
	li := t1.lmld[i]
	lj := t2.lmld[j]
	m := i - li + 2
	n := j - lj + 2

	fd := make([][]float64, m)
	for r := range fd {
		fd[r] = make([]float64, n)
	}
	for di := 1; di < m; di++ {
		fd[di][0] = fd[di-1][0] + 1
	}
	for dj := 1; dj < n; dj++ {
		fd[0][dj] = fd[0][dj-1] + 1
	}

	for di := 1; di < m; di++ {
		for dj := 1; dj < n; dj++ {
			ni := li + di - 1
			nj := lj + dj - 1
			if t1.lmld[ni] == li && t2.lmld[nj] == lj {
				fd[di][dj] = min3(
					fd[di-1][dj]+1,
					fd[di][dj-1]+1,
					fd[di-1][dj-1]+relabelCost(t1, ni, t2, nj),
				)
				td[ni][nj] = fd[di][dj]
			} else {
				fd[di][dj] = min3(
					fd[di-1][dj]+1,
					fd[di][dj-1]+1,
					fd[t1.lmld[ni]-li][t2.lmld[nj]-lj]+td[ni][nj],
				)
			}
		}
	}
}

func min3(a, b, c float64) float64 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// TreeSimilarity builds the heading-nested trees for both pages and
// normalizes their edit distance by the larger element count. The virtual
// roots pair at zero cost, so an empty prediction against n ground-truth
// elements costs exactly n, a full miss after normalization.
func TreeSimilarity(pred, gt []model.Element) float64 {
	tp := flatten(buildTree(pred))
	tg := flatten(buildTree(gt))

	dist := treeEditDistance(tp, tg)

	denom := len(pred)
	if len(gt) > denom {
		denom = len(gt)
	}
	if denom == 0 {
		denom = 1
	}

	sim := 1 - dist/float64(denom)
	if sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return sim
}
