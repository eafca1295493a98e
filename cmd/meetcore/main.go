// Command meetcore is the binary entrypoint: serve, worker, and migrate
// subcommands all live in package cmd.
package main

import "github.com/teamatoi/meetcore/cmd"

func main() {
	cmd.Execute()
}
