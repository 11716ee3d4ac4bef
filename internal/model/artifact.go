package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Objectives understood by the evaluator. Both produce a logit margin.
const (
	ObjectiveLogistic = "binary:logistic"
	ObjectiveLogitRaw = "binary:logitraw"
)

// Artifact is the serialised classifier: tree nodes in the XGBoost JSON dump
// layout plus the metadata needed to evaluate them.
type Artifact struct {
	Name         string                        `json:"name"`
	Objective    string                        `json:"objective"`
	BaseScore    *float64                      `json:"base_score"`
	Threshold    *float64                      `json:"threshold"`
	FeatureNames []string                      `json:"feature_names"`
	Categories   map[string]map[string]float64 `json:"categories"`
	Trees        []Node                        `json:"trees"`
}

// Node is one tree node. A node with Leaf set is terminal.
type Node struct {
	NodeID         int      `json:"nodeid"`
	Depth          int      `json:"depth"`
	Split          string   `json:"split"`
	SplitCondition float64  `json:"split_condition"`
	Yes            int      `json:"yes"`
	No             int      `json:"no"`
	Missing        int      `json:"missing"`
	Leaf           *float64 `json:"leaf"`
	Children       []Node   `json:"children"`
}

// defaultCategories follows alphabetical label encoding of the sentiment classes.
var defaultCategories = map[string]map[string]float64{
	"sentiment_label": {
		"negative": 0,
		"neutral":  1,
		"positive": 2,
	},
}

// ReadArtifact decodes an artifact from r.
func ReadArtifact(r io.Reader) (*Artifact, error) {
	var art Artifact
	dec := json.NewDecoder(r)
	if err := dec.Decode(&art); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	return &art, nil
}

// LoadArtifact reads an artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model artifact: %w", err)
	}
	defer file.Close()
	return ReadArtifact(file)
}

// compiledTree indexes nodes by id for evaluation.
type compiledTree struct {
	root  int
	nodes map[int]compiledNode
}

type compiledNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	yes       int
	no        int
	missing   int
}

func (a *Artifact) compile() ([]compiledTree, error) {
	if len(a.FeatureNames) == 0 {
		return nil, fmt.Errorf("model artifact declares no feature_names")
	}
	if len(a.Trees) == 0 {
		return nil, fmt.Errorf("model artifact contains no trees")
	}

	position := make(map[string]int, len(a.FeatureNames))
	for i, name := range a.FeatureNames {
		position[name] = i
	}

	trees := make([]compiledTree, 0, len(a.Trees))
	for i, root := range a.Trees {
		tree := compiledTree{root: root.NodeID, nodes: make(map[int]compiledNode)}
		if err := flatten(root, position, tree.nodes); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

func flatten(n Node, position map[string]int, out map[int]compiledNode) error {
	if _, dup := out[n.NodeID]; dup {
		return fmt.Errorf("duplicate node id %d", n.NodeID)
	}
	if n.Leaf != nil {
		out[n.NodeID] = compiledNode{leaf: true, value: *n.Leaf}
		return nil
	}
	if len(n.Children) == 0 {
		return fmt.Errorf("node %d has neither leaf nor children", n.NodeID)
	}

	feature, ok := resolveFeature(n.Split, position)
	if !ok {
		return fmt.Errorf("node %d splits on unknown feature %q", n.NodeID, n.Split)
	}
	children := make(map[int]bool, len(n.Children))
	for _, child := range n.Children {
		children[child.NodeID] = true
	}
	for _, next := range []int{n.Yes, n.No, n.Missing} {
		if !children[next] {
			return fmt.Errorf("node %d branches to %d which is not one of its children", n.NodeID, next)
		}
	}

	out[n.NodeID] = compiledNode{
		feature:   feature,
		threshold: n.SplitCondition,
		yes:       n.Yes,
		no:        n.No,
		missing:   n.Missing,
	}
	for _, child := range n.Children {
		if err := flatten(child, position, out); err != nil {
			return err
		}
	}
	return nil
}

// resolveFeature accepts named splits and the positional "f<N>" form.
func resolveFeature(split string, position map[string]int) (int, bool) {
	if i, ok := position[split]; ok {
		return i, true
	}
	if strings.HasPrefix(split, "f") {
		if i, err := strconv.Atoi(split[1:]); err == nil && i >= 0 && i < len(position) {
			return i, true
		}
	}
	return 0, false
}
