// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/luabundle/luabundle/cmd/luabundle"

func main() {
	cmd.Execute()
}
