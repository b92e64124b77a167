package facet_test

import (
	"fmt"

	"github.com/anatomaps/flatmap/pkg/facet"
)

func ExampleFacet() {
	taxa := facet.New[string]("taxon")
	taxa.Add("NCBITaxon:9606", false)
	taxa.Add("NCBITaxon:10114", false)

	changed := taxa.Enable([]string{"NCBITaxon:9606"}, true, false)
	fmt.Println("changed:", changed)
	fmt.Println("enabled:", taxa.EnabledKeys())

	// Repeating the same request changes nothing.
	changed = taxa.Enable([]string{"NCBITaxon:9606"}, true, false)
	fmt.Println("changed:", changed)

	// Output:
	// changed: [NCBITaxon:9606]
	// enabled: [NCBITaxon:9606]
	// changed: []
}
