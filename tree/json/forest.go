package json

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pbanos/canopy/feature"
	"github.com/pbanos/canopy/tree"
)

/*
Forest is the content of a model file: the ordered input features shared
by all trees, the optional combination weights (nil meaning uniform) and
the trees themselves.
*/
type Forest struct {
	Features []feature.Feature
	Weights  []float64
	Trees    []*tree.Tree
}

type jsonForest struct {
	Features []string          `json:"features"`
	Weights  []float64         `json:"weights,omitempty"`
	Trees    []json.RawMessage `json:"trees"`
}

/*
WriteForest takes a context.Context, a Forest and an io.Writer and
serializes the forest as a JSON object with the following fields:
* "features": an array with the names of the input features, in order
* "weights": an array with the weight of each tree, omitted for uniform weights
* "trees": an array with the trees as serialized by WriteJSONTree
An error is returned if any tree cannot be traversed, serialized or written
onto the io.Writer.
*/
func WriteForest(ctx context.Context, f *Forest, w io.Writer) error {
	jfeatures, err := json.Marshal(feature.Names(f.Features))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, `{"features":%s,`, jfeatures)
	if err != nil {
		return err
	}
	if f.Weights != nil {
		jweights, err := json.Marshal(f.Weights)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, `"weights":%s,`, jweights)
		if err != nil {
			return err
		}
	}
	_, err = w.Write([]byte(`"trees":[`))
	if err != nil {
		return err
	}
	ned := NewNodeEncodeDecoder(NewCriteriaEncodeDecoder(f.Features), f.Features)
	for i, t := range f.Trees {
		if i != 0 {
			if _, err = w.Write([]byte(",")); err != nil {
				return err
			}
		}
		err = WriteJSONTree(ctx, t, ned, w)
		if err != nil {
			return fmt.Errorf("writing tree %d: %v", i, err)
		}
	}
	_, err = w.Write([]byte(`]}`))
	return err
}

/*
ReadForest takes a context.Context, an io.Reader and a function returning
a new tree.NodeStore, and unmarshals the model file on the io.Reader into a
Forest, storing the nodes of every tree in its own store obtained from the
function. If the function is nil memory node stores are used.
An error is returned if the JSON cannot be read, declares no features or
trees, or any of its trees cannot be unmarshalled.
*/
func ReadForest(ctx context.Context, r io.Reader, newStore func() tree.NodeStore) (*Forest, error) {
	if newStore == nil {
		newStore = tree.NewMemoryNodeStore
	}
	jf := &jsonForest{}
	err := json.NewDecoder(r).Decode(jf)
	if err != nil {
		return nil, fmt.Errorf("parsing model json: %v", err)
	}
	if len(jf.Features) == 0 {
		return nil, fmt.Errorf("model declares no features")
	}
	if len(jf.Trees) == 0 {
		return nil, fmt.Errorf("model declares no trees")
	}
	f := &Forest{
		Features: feature.NewContinuousFeatures(jf.Features),
		Weights:  jf.Weights,
	}
	ned := NewNodeEncodeDecoder(NewCriteriaEncodeDecoder(f.Features), f.Features)
	for i, raw := range jf.Trees {
		t := tree.New("", newStore(), nil, f.Features)
		err = ReadJSONTree(ctx, t, ned, bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("reading tree %d: %v", i, err)
		}
		f.Trees = append(f.Trees, t)
	}
	return f, nil
}

/*
ReadForestFromFile takes a context.Context and a filepath string, opens the
file and uses ReadForest with memory node stores to return the Forest in it
or an error.
*/
func ReadForestFromFile(ctx context.Context, filepath string) (*Forest, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("opening model file %s: %v", filepath, err)
	}
	defer f.Close()
	forest, err := ReadForest(ctx, f, nil)
	if err != nil {
		return nil, fmt.Errorf("reading model file %s: %v", filepath, err)
	}
	return forest, nil
}

/*
WriteForestToFile takes a context.Context, a Forest and a filepath string
and writes the forest onto the file with WriteForest, creating or
truncating it.
*/
func WriteForestToFile(ctx context.Context, forest *Forest, filepath string) error {
	f, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("creating model file %s: %v", filepath, err)
	}
	err = WriteForest(ctx, forest, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing model file %s: %v", filepath, err)
	}
	return nil
}
