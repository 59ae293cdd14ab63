// Command integra-harvester collects and normalizes faculty records from Integra portals.
package main

import "github.com/JakeFAU/integra-harvester/cmd"

func main() {
	cmd.Execute()
}
