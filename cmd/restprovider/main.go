// Command restprovider drives REST backends through the data provider and
// runs the sandbox backend.
package main

import "github.com/Sentinel-Gate/restprovider/cmd/restprovider/cmd"

func main() {
	cmd.Execute()
}
