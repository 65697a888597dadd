/*
Package json provides the JSON encoding of regression trees and forests:
nodes with their criteria and predictions, single trees, and model files
holding the features, weights and trees of a forest.
*/
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
)

/*
WriteJSONTree takes a context.Context, a pointer to a tree.Tree
a NodeEncodeDecoder and an io.Writer and serializes the given tree
as JSON onto the io.Writer.
A tree is serialized as a JSON object with the following fields:
  - "rootID": a string with the ID of the node at the root of the tree
  - "label": a string with the name of the feature the tree predicts
  - "nodes": an array containing the nodes that can be traversed on the tree
    serialized by the given NodeEncodeDecoder.

An error is returned if the tree cannot be traversed, serialized or written
onto the io.Writer.
*/
func WriteJSONTree(ctx context.Context, t *tree.Tree, ned NodeEncodeDecoder, w io.Writer) error {
	label := ""
	if t.Label != nil {
		label = t.Label.Name()
	}
	jrootID, err := json.Marshal(t.RootID)
	if err != nil {
		return err
	}
	jlabel, err := json.Marshal(label)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, `{"rootID":%s,"label":%s,"nodes":[`, jrootID, jlabel)
	if err != nil {
		return err
	}
	var i int
	err = t.Traverse(ctx, false, func(ctx context.Context, n *tree.Node) error {
		if i != 0 {
			if _, err := w.Write([]byte(",")); err != nil {
				return err
			}
		}
		i++
		jn, err := ned.Encode(n)
		if err != nil {
			return err
		}
		_, err = w.Write(jn)
		return err
	})
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(`]}`))
	return err
}

type jsonTree struct {
	RootID string            `json:"rootID"`
	Label  string            `json:"label"`
	Nodes  []json.RawMessage `json:"nodes"`
}

/*
ReadJSONTree takes a context.Context, a pointer to a tree.Tree, a
NodeEncodeDecoder and an io.Reader and unmarshals the contents of the
io.Reader onto the given tree, storing its nodes in the tree's NodeStore.
A tree is expected to be a JSON object with the following fields:
  - "rootID": a string with the ID of the node at the root of the tree
  - "label": a string with the name of the feature the tree predicts
  - "nodes": an array containing the nodes of the tree
    unmarshalled by the given NodeEncodeDecoder.

The tree's Label is set to a continuous feature with the label name.
An error is returned if the JSON cannot be read from the io.Reader or
unmarshalled onto the tree.
*/
func ReadJSONTree(ctx context.Context, t *tree.Tree, ned NodeEncodeDecoder, r io.Reader) error {
	jt := &jsonTree{}
	err := json.NewDecoder(r).Decode(jt)
	if err != nil {
		return err
	}
	return jt.load(ctx, t, ned)
}

func (jt *jsonTree) load(ctx context.Context, t *tree.Tree, ned NodeEncodeDecoder) error {
	if jt.RootID == "" {
		return fmt.Errorf("no root node id available")
	}
	if jt.Label != "" {
		t.Label = feature.NewContinuousFeature(jt.Label)
	}
	t.RootID = jt.RootID
	for _, jn := range jt.Nodes {
		n, err := ned.Decode(jn)
		if err != nil {
			return err
		}
		err = t.NodeStore.Store(ctx, n)
		if err != nil {
			return err
		}
	}
	return nil
}
