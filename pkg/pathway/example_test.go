package pathway_test

import (
	"fmt"

	"github.com/anatomaps/flatmap/pkg/pathway"
)

func ExampleNewRegistry() {
	// Pathway document as served in a map bundle
	jsonData := `{
		"paths": {
			"path_1": {"lines": [10, 11], "nerves": [30], "nodes": [1, 2]},
			"path_2": {"lines": [11, 12], "nodes": [2, 3]}
		},
		"node-paths": {"2": ["path_1", "path_2"]},
		"type-paths": {"sensory": ["path_1"], "symp-pre": ["path_2"]}
	}`

	doc, err := pathway.Parse([]byte(jsonData))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	reg := pathway.NewRegistry(doc)

	fmt.Println("Paths:", reg.NumPaths())
	fmt.Println("Sensory:", reg.PathsOfType(pathway.PathTypeSensory))
	fmt.Println("Through node 2:", reg.PathsByNode(2))
	fmt.Println("Features of path_1:", reg.PathFeatures("path_1").ToArray())
	// Output:
	// Paths: 2
	// Sensory: [path_1]
	// Through node 2: [path_1 path_2]
	// Features of path_1: [1 2 10 11 30]
}

func ExampleNormalizeType() {
	fmt.Println(pathway.NormalizeType("sensory"))
	fmt.Println(pathway.NormalizeType("motor"))
	fmt.Println(pathway.NormalizeType("unclassified-neuron"))
	// Output:
	// sensory
	// somatic
	// other
}
