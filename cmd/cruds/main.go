// Command cruds serves generic CRUD pages for the models declared in its
// config.yaml.
package main

import "github.com/mesh-intelligence/cruds/internal/cli"

func main() {
	cli.Execute()
}
