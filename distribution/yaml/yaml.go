/*
Package yaml provides methods to parse distribution.Distribution
specifications from YAML documents.
*/
package yaml

import (
	"fmt"
	"io/ioutil"

	"github.com/pbanos/canopy/distribution"
	yaml "gopkg.in/yaml.v2"
)

/*
ReadSpecs takes a slice of bytes with distribution specifications in YAML
and returns the raw spec for each feature name found in it or an error.
The YAML is expected to be an object containing a distributions property.
The value for this should be an object with a property for each feature
whose value is a distribution spec, for instance:

	distributions:
	  temperature:
	    kind: normal
	    std: 0.5
	  pressure:
	    kind: uniform
	    half_width: 2
	    low: 0

The returned specs can be handed to distribution.ParseSet.
*/
func ReadSpecs(md []byte) (map[string]interface{}, error) {
	doc := struct {
		Distributions map[string]interface{}
	}{}
	err := yaml.Unmarshal(md, &doc)
	if err != nil {
		return nil, fmt.Errorf("parsing yml distributions: %v", err)
	}
	if doc.Distributions == nil {
		return nil, fmt.Errorf("document has no distributions information")
	}
	specs := make(map[string]interface{}, len(doc.Distributions))
	for name, raw := range doc.Distributions {
		spec, ok := raw.(map[interface{}]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid distribution declaration for %s of type %T", name, raw)
		}
		specs[name] = stringKeys(spec)
	}
	return specs, nil
}

/*
ReadDistributions takes a slice of bytes with distribution specifications
in YAML and the ordered feature names of a model, and returns one
distribution per feature as distribution.ParseSet does.
*/
func ReadDistributions(md []byte, features []string) ([]distribution.Distribution, error) {
	specs, err := ReadSpecs(md)
	if err != nil {
		return nil, err
	}
	return distribution.ParseSet(specs, features)
}

/*
ReadSpecsFromFile takes a filepath string, reads its contents and uses
ReadSpecs to parse it and return the raw specs or an error. If the file
indicated by the filepath cannot be opened for reading an error will be
returned.
*/
func ReadSpecsFromFile(filepath string) (map[string]interface{}, error) {
	md, err := ioutil.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading distributions yml file %s: %v", filepath, err)
	}
	specs, err := ReadSpecs(md)
	if err != nil {
		err = fmt.Errorf("parsing distributions yml file %s: %v", filepath, err)
	}
	return specs, err
}

func stringKeys(m map[interface{}]interface{}) map[string]interface{} {
	r := make(map[string]interface{}, len(m))
	for k, v := range m {
		r[fmt.Sprintf("%v", k)] = v
	}
	return r
}
