package json

import (
	"encoding/json"
	"fmt"

	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
)

/*
NodeEncodeDecoder is an interface for objects
that allow encoding nodes into slices of
bytes and decoding them back to nodes.
*/
type NodeEncodeDecoder interface {

	//Encode receives a *tree.Node
	//and returns a slice of bytes with the node
	//encoded or an error if the encoding could not
	//be performed for some reason.
	Encode(*tree.Node) ([]byte, error)

	//Decode receives a slice of bytes
	//and returns a *tree.Node decoded from the
	//slice of bytes or an error if the decoding
	//could not be performed for some reason.
	Decode([]byte) (*tree.Node, error)
}

type nodeEncodeDecoder struct {
	CriteriaEncodeDecoder
	features []feature.Feature
}

type node struct {
	ID               string           `json:"id"`
	ParentID         string           `json:"pId,omitempty"`
	SubtreeIDs       []string         `json:"stIds,omitempty"`
	FeatureCriterion *json.RawMessage `json:"c,omitempty"`
	SubtreeFeature   string           `json:"f,omitempty"`
	Prediction       *jsonPrediction  `json:"pred,omitempty"`
}

type jsonPrediction struct {
	Value  float64 `json:"v"`
	Weight int     `json:"w,omitempty"`
}

/*
NewNodeEncodeDecoder returns a NodeEncodeDecoder that uses the
given CriteriaEncodeDecoder to encode/decode nodes' feature criteria
and resolves subtree features among the given ones.
*/
func NewNodeEncodeDecoder(ced CriteriaEncodeDecoder, features []feature.Feature) NodeEncodeDecoder {
	return &nodeEncodeDecoder{ced, features}
}

func (ned *nodeEncodeDecoder) Encode(n *tree.Node) ([]byte, error) {
	jn := &node{
		ID:       n.ID,
		ParentID: n.ParentID,
	}
	if len(n.SubtreeIDs) > 0 {
		jn.SubtreeIDs = n.SubtreeIDs
	}
	if n.FeatureCriterion != nil {
		fc, err := ned.CriteriaEncodeDecoder.Encode(n.FeatureCriterion)
		if err != nil {
			return nil, err
		}
		rfc := json.RawMessage(fc)
		jn.FeatureCriterion = &rfc
	}
	if n.Prediction != nil {
		jn.Prediction = &jsonPrediction{Value: n.Prediction.Value(), Weight: n.Prediction.Weight()}
	}
	if n.SubtreeFeature != nil {
		jn.SubtreeFeature = n.SubtreeFeature.Name()
	}
	return json.Marshal(jn)
}

func (ned *nodeEncodeDecoder) Decode(data []byte) (*tree.Node, error) {
	jn := &node{}
	err := json.Unmarshal(data, jn)
	if err != nil {
		return nil, err
	}
	if jn.ID == "" {
		return nil, fmt.Errorf("unmarshalling node: missing id")
	}
	n := &tree.Node{ID: jn.ID, ParentID: jn.ParentID}
	if jn.FeatureCriterion != nil {
		n.FeatureCriterion, err = ned.CriteriaEncodeDecoder.Decode(*jn.FeatureCriterion)
		if err != nil {
			return nil, fmt.Errorf("unmarshalling node %v: %v", n.ID, err)
		}
	}
	if jn.Prediction != nil {
		n.Prediction = tree.NewPrediction(jn.Prediction.Value, jn.Prediction.Weight)
	}
	if len(jn.SubtreeIDs) > 0 {
		n.SubtreeIDs = jn.SubtreeIDs
	}
	if jn.SubtreeFeature != "" {
		nf := findFeature(ned.features, jn.SubtreeFeature)
		if nf == nil {
			return nil, fmt.Errorf("unmarshalling node %v: unknown feature %v", n.ID, jn.SubtreeFeature)
		}
		n.SubtreeFeature = nf
	}
	return n, nil
}
