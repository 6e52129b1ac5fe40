// =============================================================================
// EPCIS Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   epcis parse <file>   - Map one document and print the JSON collection
//   epcis process        - Convert every document in the input directory
//   epcis watch          - Convert documents as they arrive
//   epcis validate       - Check documents without converting them
//   epcis version        - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : XML tree builder, event mapper, pipeline and writers
//   - pkg/       : File management utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/epcis-converter/cmd"
)

func main() {
	cmd.Execute()
}
