// SPDX-License-Identifier: MPL-2.0

package main

import cmd "envmod-cli/cmd/envmod"

func main() {
	cmd.Execute()
}
