// Command gitcs-filter rewrites git history, moving large binary
// assets out of the object graph and into an external object store.
package main

import "github.com/javanhut/gitcs-filter/cli"

func main() {
	cli.Execute()
}
