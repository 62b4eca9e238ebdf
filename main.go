// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/appcraft/appcraft/cmd/appcraft"

func main() {
	cmd.Execute()
}
